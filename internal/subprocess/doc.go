// Package subprocess provides the subprocess-based transport for the bridge worker.
//
// This package implements the Transport interface by spawning the Python
// bridge as a child process and communicating via stdin/stdout. Stdout carries
// the line-delimited protocol; stderr is a diagnostic side channel that is
// buffered for error reports and streamed to an optional callback, but never
// parsed as protocol.
package subprocess
