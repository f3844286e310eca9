package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/mcp"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

func newMCPCommand(a *app) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the fan as Model Context Protocol tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := a.options()
			b := bridge.New(a.log, opts)

			defer b.Close()

			consumer := bridge.NewNamedConsumer("mcp", nil)
			server := mcp.NewBridgeServer("quietcool", Version, mcp.ToolDeps{
				Logger:   a.log,
				Bridge:   b,
				Consumer: consumer,
				OneShot:  oneshot.New(a.log, opts),
			})

			if list {
				return writeJSON(cmd.OutOrStdout(), server.ListTools())
			}

			if err := b.Register(consumer); err != nil {
				a.log.Error("Bridge worker failed to start", "error", err)
			}

			defer b.Deregister(consumer)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.RunStdio(ctx)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print the tool list as JSON and exit")

	return cmd
}
