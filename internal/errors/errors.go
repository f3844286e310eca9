package errors

import (
	"errors"
	"fmt"
	"time"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*WorkerNotFoundError)(nil)
	_ BridgeError = (*SpawnError)(nil)
	_ BridgeError = (*ExitedError)(nil)
	_ BridgeError = (*TimeoutError)(nil)
	_ BridgeError = (*ProtocolParseError)(nil)
	_ BridgeError = (*CommandError)(nil)
	_ BridgeError = (*ValidationError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotReady indicates a command was issued while no worker is present
	// or before it announced bridge_ready.
	ErrNotReady = errors.New("bridge not ready")

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.New("bridge closed")

	// ErrBridgeStopped indicates the worker was stopped because the last
	// consumer deregistered while the request was outstanding.
	ErrBridgeStopped = errors.New("bridge stopped")

	// ErrDuplicateID indicates a caller-chosen correlation id is already outstanding.
	ErrDuplicateID = errors.New("correlation id already outstanding")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrStdinClosed indicates the worker's stdin was closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrUnknownCommand indicates the command is not in the command catalog.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrConsumerNotRegistered indicates a command was issued on behalf of a
	// consumer that is not registered with the bridge.
	ErrConsumerNotRegistered = errors.New("consumer not registered")
)

// WorkerNotFoundError indicates the Python interpreter or bridge script was not found.
type WorkerNotFoundError struct {
	SearchedPaths []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("bridge worker not found in: %v", e.SearchedPaths)
}

// IsBridgeError implements BridgeError.
func (e *WorkerNotFoundError) IsBridgeError() bool { return true }

// SpawnError indicates the worker process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn bridge worker: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *SpawnError) IsBridgeError() bool { return true }

// ExitedError indicates the worker terminated while requests were outstanding.
//
// The message is always "Bridge process exited"; callers match on it. The
// exit code (-1 when unknown) and captured stderr stay in the fields.
type ExitedError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitedError) Error() string {
	return "Bridge process exited"
}

func (e *ExitedError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ExitedError) IsBridgeError() bool { return true }

// TimeoutError indicates no response arrived within the request budget.
type TimeoutError struct {
	ID      string
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s (id %s) after %s", ErrRequestTimeout, e.Command, e.ID, e.Timeout)
}

// Is reports ErrRequestTimeout as a match so callers can test with errors.Is.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}

// IsBridgeError implements BridgeError.
func (e *TimeoutError) IsBridgeError() bool { return true }

// ProtocolParseError indicates an inbound worker line was not valid protocol JSON.
// This error preserves the original raw line that failed to parse.
type ProtocolParseError struct {
	RawData string
	Err     error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("failed to decode JSON from bridge worker: %v", e.Err)
}

func (e *ProtocolParseError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProtocolParseError) IsBridgeError() bool { return true }

// CommandError indicates the worker answered a request with ok:false.
type CommandError struct {
	ID      string
	Command string
	Message string
	Data    map[string]any
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *CommandError) IsBridgeError() bool { return true }

// ValidationError indicates command arguments do not match the command's schema.
type ValidationError struct {
	Command string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Command, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ValidationError) IsBridgeError() bool { return true }
