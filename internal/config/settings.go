package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the on-disk configuration of the bridge command.
type Settings struct {
	Worker   WorkerSettings  `mapstructure:"worker"`
	Fan      FanSettings     `mapstructure:"fan"`
	Timeouts TimeoutSettings `mapstructure:"timeouts"`
	Admin    AdminSettings   `mapstructure:"admin"`
	Log      LogSettings     `mapstructure:"log"`
}

// WorkerSettings locates the worker and controls its verbosity.
type WorkerSettings struct {
	// Python is the interpreter path (default: searched in PATH)
	Python string `mapstructure:"python"`
	// Script is the bridge.py path (default: searched)
	Script string `mapstructure:"script"`
	// LogLevel is exported to the worker as QUIETCOOL_LOG_LEVEL (default: WARNING)
	LogLevel string `mapstructure:"log_level"`
	// Env holds extra environment variables for the worker
	Env map[string]string `mapstructure:"env"`
}

// FanSettings holds the auto-connect parameters.
type FanSettings struct {
	Address string `mapstructure:"address"`
	PhoneID string `mapstructure:"phone_id"`
}

// TimeoutSettings holds every budget; values are Go durations ("15s").
type TimeoutSettings struct {
	Command      time.Duration `mapstructure:"command"`
	Pair         time.Duration `mapstructure:"pair"`
	Connect      time.Duration `mapstructure:"connect"`
	Ready        time.Duration `mapstructure:"ready"`
	Scan         time.Duration `mapstructure:"scan"`
	ScanDuration time.Duration `mapstructure:"scan_duration"`
	RestartDelay time.Duration `mapstructure:"restart_delay"`
	StopGrace    time.Duration `mapstructure:"stop_grace"`
}

// AdminSettings controls the HTTP administrative surface.
type AdminSettings struct {
	// Listen is the address the admin server binds (default: 127.0.0.1:1881)
	Listen string `mapstructure:"listen"`
}

// LogSettings controls the bridge's own logging.
type LogSettings struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`
	// Format is text or json (default: text)
	Format string `mapstructure:"format"`
}

// DefaultSettings returns the settings used when no file or env overrides exist.
func DefaultSettings() *Settings {
	return &Settings{
		Worker: WorkerSettings{LogLevel: DefaultLogLevel},
		Timeouts: TimeoutSettings{
			Command:      DefaultCommandTimeout,
			Pair:         DefaultPairTimeout,
			Connect:      DefaultConnectTimeout,
			Ready:        DefaultReadyTimeout,
			Scan:         DefaultScanTimeout,
			ScanDuration: DefaultScanDuration,
			RestartDelay: DefaultRestartDelay,
			StopGrace:    DefaultStopGracePeriod,
		},
		Admin: AdminSettings{Listen: "127.0.0.1:1881"},
		Log:   LogSettings{Level: "info", Format: "text"},
	}
}

// SetDefaults registers DefaultSettings with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("worker.python", d.Worker.Python)
	v.SetDefault("worker.script", d.Worker.Script)
	v.SetDefault("worker.log_level", d.Worker.LogLevel)

	v.SetDefault("fan.address", d.Fan.Address)
	v.SetDefault("fan.phone_id", d.Fan.PhoneID)

	v.SetDefault("timeouts.command", d.Timeouts.Command)
	v.SetDefault("timeouts.pair", d.Timeouts.Pair)
	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.ready", d.Timeouts.Ready)
	v.SetDefault("timeouts.scan", d.Timeouts.Scan)
	v.SetDefault("timeouts.scan_duration", d.Timeouts.ScanDuration)
	v.SetDefault("timeouts.restart_delay", d.Timeouts.RestartDelay)
	v.SetDefault("timeouts.stop_grace", d.Timeouts.StopGrace)

	v.SetDefault("admin.listen", d.Admin.Listen)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ConfigDir returns the directory searched for config.yaml.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "quietcool")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "quietcool")
}

// Load reads configuration into v from cfgFile (or the default search path)
// and QUIETCOOL_* environment variables, then decodes it.
//
// A missing config file is not an error; a malformed one is.
func Load(v *viper.Viper, cfgFile string) (*Settings, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUIETCOOL")
	// e.g. QUIETCOOL_FAN_PHONE_ID for fan.phone_id
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &s, nil
}

// Options converts settings into bridge options using log as the logger.
func (s *Settings) Options(log *slog.Logger) *Options {
	return (&Options{
		Logger:          log,
		PythonPath:      s.Worker.Python,
		BridgeScript:    s.Worker.Script,
		LogLevel:        s.Worker.LogLevel,
		Env:             s.Worker.Env,
		Address:         s.Fan.Address,
		PhoneID:         s.Fan.PhoneID,
		CommandTimeout:  s.Timeouts.Command,
		PairTimeout:     s.Timeouts.Pair,
		ConnectTimeout:  s.Timeouts.Connect,
		ReadyTimeout:    s.Timeouts.Ready,
		ScanTimeout:     s.Timeouts.Scan,
		ScanDuration:    s.Timeouts.ScanDuration,
		RestartDelay:    s.Timeouts.RestartDelay,
		StopGracePeriod: s.Timeouts.StopGrace,
	}).WithDefaults()
}

// ParseLogLevel maps a config level name to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
