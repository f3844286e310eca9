package quietcool

import (
	"log/slog"
	"time"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
)

// Options configures a bridge, its worker and one-shot operations.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options over the defaults.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options.WithDefaults()
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithPythonPath sets the explicit path to the Python interpreter.
// If not set, python3 is searched in PATH.
func WithPythonPath(path string) Option {
	return func(o *Options) {
		o.PythonPath = path
	}
}

// WithBridgeScript sets the path to bridge.py.
func WithBridgeScript(path string) Option {
	return func(o *Options) {
		o.BridgeScript = path
	}
}

// WithWorkerLogLevel sets the worker's Python log level (DEBUG, INFO, WARNING, ERROR).
func WithWorkerLogLevel(level string) Option {
	return func(o *Options) {
		o.LogLevel = level
	}
}

// WithEnv provides additional environment variables for the worker process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithFan sets the fan address and paired phone ID. With both set, the
// bridge connects automatically whenever a worker becomes ready.
func WithFan(address, phoneID string) Option {
	return func(o *Options) {
		o.Address = address
		o.PhoneID = phoneID
	}
}

// WithStderr sets a callback for the worker's diagnostic output.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithTransportFactory replaces the subprocess transport, typically in tests.
func WithTransportFactory(factory TransportFactory) Option {
	return func(o *Options) {
		o.TransportFactory = factory
	}
}

// ===== Timing =====

// WithCommandTimeout sets the budget for ordinary commands.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CommandTimeout = d
	}
}

// WithPairTimeout sets the budget for pairing.
func WithPairTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PairTimeout = d
	}
}

// WithConnectTimeout sets the budget for the automatic connect.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithReadyTimeout bounds how long one-shot operations wait for bridge_ready.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ReadyTimeout = d
	}
}

// WithScan sets the discovery window and the overall scan budget.
func WithScan(duration, timeout time.Duration) Option {
	return func(o *Options) {
		o.ScanDuration = duration
		o.ScanTimeout = timeout
	}
}

// WithRestartDelay sets the delay before an exited worker is respawned.
func WithRestartDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RestartDelay = d
	}
}

// WithStopGracePeriod sets how long a worker gets to exit before it is killed.
func WithStopGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.StopGracePeriod = d
	}
}
