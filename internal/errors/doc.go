// Package errors defines error types for the QuietCool bridge.
//
// This package provides structured error types for the different failure
// scenarios of a supervised bridge worker: spawn failures, requests issued
// before the worker is ready, worker exits, timeouts, malformed protocol
// lines and worker-reported command failures. All error types support
// error unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors
