// Package cmd implements the quietcool-bridge command line.
package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wagiedev/quietcool-bridge-go/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// app carries state shared by every subcommand of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	settings *config.Settings
	log      *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "quietcool-bridge",
		Short: "Bridge QuietCool attic fans over Bluetooth LE",
		Long: `quietcool-bridge supervises the QuietCool BLE worker and exposes the
fan to local automation: an HTTP admin surface, an MCP server, and one-shot
commands for scanning, pairing and sending fan commands.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default is $XDG_CONFIG_HOME/quietcool/config.yaml)")
	root.PersistentFlags().String("log-level", "", "bridge log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "bridge log format: text or json")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newServeCommand(a),
		newMCPCommand(a),
		newScanCommand(a),
		newPairCommand(a),
		newGenerateIDCommand(a),
		newSendCommand(a),
		newDoctorCommand(a),
	)

	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) load(stderr io.Writer) error {
	settings, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	a.settings = settings
	a.log = newLogger(stderr, settings.Log)

	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("Loaded config", "file", used)
	}

	return nil
}

// options returns bridge options with worker diagnostics routed to the log.
func (a *app) options() *config.Options {
	opts := a.settings.Options(a.log)
	worker := a.log.With("component", "worker")
	opts.Stderr = func(line string) {
		worker.Debug(line)
	}

	return opts
}

func newLogger(w io.Writer, s config.LogSettings) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: config.ParseLogLevel(s.Level)}

	if strings.EqualFold(s.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}

	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
