package quietcool

import "github.com/wagiedev/quietcool-bridge-go/internal/errors"

// Re-export error types from internal package

// WorkerNotFoundError indicates python3 or bridge.py was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// SpawnError indicates the worker process could not be started.
type SpawnError = errors.SpawnError

// ExitedError indicates the worker exited while requests were outstanding.
type ExitedError = errors.ExitedError

// TimeoutError indicates a request received no response in time.
type TimeoutError = errors.TimeoutError

// ProtocolParseError indicates the worker wrote a line that is not protocol JSON.
type ProtocolParseError = errors.ProtocolParseError

// CommandError indicates the fan or worker rejected a command.
type CommandError = errors.CommandError

// ValidationError indicates command arguments failed schema validation.
type ValidationError = errors.ValidationError

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrNotReady indicates the worker is absent or has not announced readiness.
	ErrNotReady = errors.ErrNotReady

	// ErrBridgeClosed indicates the bridge has been closed and cannot be reused.
	ErrBridgeClosed = errors.ErrBridgeClosed

	// ErrBridgeStopped indicates the worker stopped because the last consumer left.
	ErrBridgeStopped = errors.ErrBridgeStopped

	// ErrConsumerNotRegistered indicates the sending consumer is not registered.
	ErrConsumerNotRegistered = errors.ErrConsumerNotRegistered

	// ErrUnknownCommand indicates the command is not in the catalog.
	ErrUnknownCommand = errors.ErrUnknownCommand

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout
)
