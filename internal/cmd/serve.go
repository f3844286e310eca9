package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/quietcool-bridge-go/internal/admin"
	"github.com/wagiedev/quietcool-bridge-go/internal/bluez"
	"github.com/wagiedev/quietcool-bridge-go/internal/bridge"
	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge and its HTTP admin surface",
		Long: `Spawn the BLE worker, auto-connect to the configured fan and serve the
/quietcool/* admin endpoints until interrupted. The worker is restarted if
it exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.settings.Admin.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "admin listen address (default from config, 127.0.0.1:1881)")

	return cmd
}

func (a *app) serve(ctx context.Context, listen string) error {
	opts := a.options()
	b := bridge.New(a.log, opts)

	defer b.Close()

	server := admin.NewServer(admin.Config{
		Logger:     a.log,
		Bridge:     b,
		OneShot:    oneshot.New(a.log, opts),
		Checker:    bluez.NewChecker(a.log, ""),
		FanAddress: opts.Address,
	})

	statusLog := a.log.With("component", "status")
	watcher := bridge.NewNamedConsumer("log", func(s bridge.ConnectivityState) {
		statusLog.Info("Fan status", "connected", s.Connected, "address", s.Address, "detail", s.Detail)
	})

	// A spawn failure is retried by the bridge; keep serving meanwhile.
	if err := b.Register(watcher); err != nil {
		a.log.Error("Bridge worker failed to start", "error", err)
	}

	defer b.Deregister(watcher)

	if err := server.Open(); err != nil {
		a.log.Warn("Admin consumer registration failed", "error", err)
	}

	defer server.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(gctx, listen)
	})

	// Stop the worker as soon as either side ends.
	g.Go(func() error {
		<-gctx.Done()

		return b.Close()
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.log.Info("Shutting down")

	return nil
}
