// Package config provides configuration types for the QuietCool bridge.
package config

import (
	"context"
	"log/slog"
)

// Transport defines the interface for communicating with one worker process.
// Implement this to provide custom transports for testing or mocking.
//
// The default implementation is subprocess.WorkerTransport which spawns
// the Python bridge. A Transport is single-use: one Start, one process.
type Transport interface {
	// Start spawns the worker and prepares it for communication.
	Start(ctx context.Context) error

	// ReadLines returns channels for receiving raw stdout lines and errors.
	// The line channel is closed when the worker's stdout reaches EOF.
	// The error channel yields the exit error, if any, and is then closed.
	ReadLines(ctx context.Context) (<-chan []byte, <-chan error)

	// SendMessage writes one frame to the worker's stdin.
	// A newline is appended if missing. This method must be safe for
	// concurrent use and must write each frame atomically.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the worker and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the worker is running and stdin is open.
	IsReady() bool

	// EndInput signals that no more input will be sent.
	EndInput() error
}

// TransportFactory creates a fresh Transport for every worker spawn.
type TransportFactory func(log *slog.Logger, options *Options) Transport
