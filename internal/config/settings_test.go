package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, DefaultLogLevel, s.Worker.LogLevel)
	require.Equal(t, 15*time.Second, s.Timeouts.Command)
	require.Equal(t, 30*time.Second, s.Timeouts.Pair)
	require.Equal(t, 5*time.Second, s.Timeouts.RestartDelay)
	require.Equal(t, "127.0.0.1:1881", s.Admin.Listen)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")

	content := `
worker:
  python: /usr/bin/python3
  script: /opt/quietcool/bridge.py
  log_level: DEBUG
fan:
  address: "AA:BB:CC:DD:EE:FF"
timeouts:
  command: 20s
  restart_delay: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("QUIETCOOL_FAN_PHONE_ID", "0123456789abcdef")

	s, err := Load(viper.New(), path)
	require.NoError(t, err)

	require.Equal(t, "/usr/bin/python3", s.Worker.Python)
	require.Equal(t, "/opt/quietcool/bridge.py", s.Worker.Script)
	require.Equal(t, "DEBUG", s.Worker.LogLevel)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", s.Fan.Address)
	require.Equal(t, "0123456789abcdef", s.Fan.PhoneID)
	require.Equal(t, 20*time.Second, s.Timeouts.Command)
	require.Equal(t, time.Second, s.Timeouts.RestartDelay)
	require.Equal(t, 30*time.Second, s.Timeouts.Pair)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSettings_Options(t *testing.T) {
	s := DefaultSettings()
	s.Fan = FanSettings{Address: "AA:BB", PhoneID: "id"}
	s.Timeouts.Command = 0

	opts := s.Options(slog.Default())

	require.True(t, opts.HasConnectionParams())
	require.Equal(t, DefaultCommandTimeout, opts.CommandTimeout)
	require.Equal(t, DefaultRestartDelay, opts.RestartDelay)
}

func TestOptions_WithDefaults(t *testing.T) {
	var nilOpts *Options

	opts := nilOpts.WithDefaults()
	require.Equal(t, DefaultLogLevel, opts.LogLevel)
	require.Equal(t, DefaultPairTimeout, opts.PairTimeout)
	require.False(t, opts.HasConnectionParams())

	custom := (&Options{RestartDelay: 50 * time.Millisecond}).WithDefaults()
	require.Equal(t, 50*time.Millisecond, custom.RestartDelay)
	require.Equal(t, DefaultScanDuration, custom.ScanDuration)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}
