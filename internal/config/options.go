package config

import (
	"log/slog"
	"time"
)

// Default budgets. These match the reference bridge behaviour and are kept as
// defaults so existing deployments see the same timing.
const (
	DefaultCommandTimeout  = 15 * time.Second
	DefaultPairTimeout     = 30 * time.Second
	DefaultConnectTimeout  = 30 * time.Second
	DefaultReadyTimeout    = 15 * time.Second
	DefaultScanTimeout     = 15 * time.Second
	DefaultScanDuration    = 8 * time.Second
	DefaultRestartDelay    = 5 * time.Second
	DefaultStopGracePeriod = 2 * time.Second
	DefaultLogLevel        = "WARNING"
)

// Options configures a bridge, its worker process and the one-shot client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// PythonPath is the explicit path to the Python interpreter.
	// If empty, python3 is searched in PATH and common locations.
	PythonPath string

	// BridgeScript is the path to bridge.py.
	// If empty, QUIETCOOL_BRIDGE_SCRIPT and common locations are searched.
	BridgeScript string

	// LogLevel is passed to the worker as QUIETCOOL_LOG_LEVEL.
	LogLevel string

	// Env provides additional environment variables for the worker process.
	Env map[string]string

	// Address is the fan's BLE address used for auto-connect on bridge_ready.
	Address string

	// PhoneID is the paired phone identifier used for auto-connect.
	PhoneID string

	// CommandTimeout is the budget for ordinary commands.
	CommandTimeout time.Duration

	// PairTimeout is the budget for the pair command.
	PairTimeout time.Duration

	// ConnectTimeout is the budget for the automatic connect command.
	ConnectTimeout time.Duration

	// ReadyTimeout bounds how long the one-shot client waits for bridge_ready.
	ReadyTimeout time.Duration

	// ScanTimeout is the overall budget of a one-shot scan.
	ScanTimeout time.Duration

	// ScanDuration is the discovery window passed to the worker's scan command.
	ScanDuration time.Duration

	// RestartDelay is the delay before respawning a worker that exited
	// while consumers were still registered.
	RestartDelay time.Duration

	// StopGracePeriod is how long a worker gets to exit after SIGTERM
	// before it is killed.
	StopGracePeriod time.Duration

	// Stderr is a callback for the worker's diagnostic output.
	Stderr func(string)

	// TransportFactory allows injecting a custom transport implementation.
	// If nil, the default subprocess transport is created for every spawn.
	TransportFactory TransportFactory `json:"-"`
}

// WithDefaults returns a copy of the options with every zero budget replaced
// by its default. A nil receiver yields the defaults.
func (o *Options) WithDefaults() *Options {
	var out Options
	if o != nil {
		out = *o
	}

	if out.LogLevel == "" {
		out.LogLevel = DefaultLogLevel
	}

	setDuration(&out.CommandTimeout, DefaultCommandTimeout)
	setDuration(&out.PairTimeout, DefaultPairTimeout)
	setDuration(&out.ConnectTimeout, DefaultConnectTimeout)
	setDuration(&out.ReadyTimeout, DefaultReadyTimeout)
	setDuration(&out.ScanTimeout, DefaultScanTimeout)
	setDuration(&out.ScanDuration, DefaultScanDuration)
	setDuration(&out.RestartDelay, DefaultRestartDelay)
	setDuration(&out.StopGracePeriod, DefaultStopGracePeriod)

	return &out
}

// HasConnectionParams reports whether auto-connect parameters are known.
func (o *Options) HasConnectionParams() bool {
	return o.Address != "" && o.PhoneID != ""
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
