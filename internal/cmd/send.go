package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/catalog"
)

func newSendCommand(a *app) *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "send <command> [key=value ...]",
		Short: "Send one command to the configured fan",
		Long: `Start the worker, connect to the configured fan, send one command and
print its response. Values are parsed as JSON when possible, so hours=2 is a
number and speed=HIGH a string. Run "send --list" to see every command.`,
		Example: `  quietcool-bridge send get_state
  quietcool-bridge send set_timer hours=2 minutes=30 speed=HIGH
  quietcool-bridge send raw --args '{"api":"GetWorkState"}'`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list"); list {
				return nil
			}

			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list, _ := cmd.Flags().GetBool("list"); list {
				return printCatalog(cmd)
			}

			name := args[0]

			cmdArgs, err := parseCommandArgs(args[1:], rawArgs)
			if err != nil {
				return err
			}

			if err := catalog.Validate(name, cmdArgs); err != nil {
				return err
			}

			if c, _ := catalog.Default().Lookup(name); c.OneShot {
				return fmt.Errorf("%s does not need a connected fan, use its own subcommand", name)
			}

			data, err := a.sendOnce(cmd.Context(), name, cmdArgs)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "command arguments as a JSON object")
	cmd.Flags().Bool("list", false, "list known commands")

	return cmd
}

func printCatalog(cmd *cobra.Command) error {
	for _, c := range catalog.Default().Commands() {
		if c.OneShot {
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", c.Name, c.Description)
	}

	return nil
}

// sendOnce runs a private bridge for a single command.
func (a *app) sendOnce(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	opts := a.options()
	b := bridge.New(a.log, opts)

	defer b.Close()

	budget := opts.ReadyTimeout + b.TimeoutFor(name)
	needConnect := opts.HasConnectionParams() && name != "connect"

	if needConnect {
		budget += opts.ConnectTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	onStatus, statuses := bridge.StatusChannel(16)
	consumer := bridge.NewNamedConsumer("cli", onStatus)

	if err := b.Register(consumer); err != nil {
		return nil, err
	}

	defer b.Deregister(consumer)

	if err := bridge.WaitUsable(ctx, statuses, needConnect); err != nil {
		return nil, err
	}

	return b.Send(ctx, consumer, name, args)
}

// parseCommandArgs merges key=value pairs over a JSON object.
func parseCommandArgs(pairs []string, raw string) (map[string]any, error) {
	args := map[string]any{}

	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("invalid --args: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, want key=value", pair)
		}

		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			decoded = value
		}

		args[key] = decoded
	}

	return args, nil
}
