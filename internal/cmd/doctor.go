package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wagiedev/quietcool-bridge-go/internal/bluez"
	"github.com/wagiedev/quietcool-bridge-go/internal/cli"
)

func newDoctorCommand(a *app) *cobra.Command {
	var adapter string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the worker installation and the Bluetooth adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			opts := a.options()

			var failed bool

			worker, err := cli.NewDiscoverer(&cli.Config{
				PythonPath:   opts.PythonPath,
				BridgeScript: opts.BridgeScript,
				Logger:       a.log,
			}).Discover(cmd.Context())
			if err != nil {
				failed = true

				report(out, false, "worker", err.Error())
			} else {
				report(out, true, "python", worker.Python)
				report(out, true, "script", worker.Script)
			}

			result, err := bluez.NewChecker(a.log, adapter).Check(cmd.Context(), opts.Address)
			if err != nil {
				failed = true

				report(out, false, "bluetooth", err.Error())
			}

			if result != nil {
				label := result.Adapter.Name
				if result.Adapter.Address != "" {
					label += " (" + result.Adapter.Address + ")"
				}

				report(out, result.Adapter.Powered, "adapter", label)

				if dev := result.Device; dev != nil {
					report(out, dev.Known, "fan", fmt.Sprintf("%s known=%t paired=%t connected=%t rssi=%d",
						dev.Address, dev.Known, dev.Paired, dev.Connected, dev.RSSI))
				}
			}

			if opts.HasConnectionParams() {
				report(out, true, "auto-connect", opts.Address)
			} else {
				report(out, false, "auto-connect", "fan.address and fan.phone_id not both set")
			}

			if failed {
				return fmt.Errorf("doctor found problems")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&adapter, "adapter", bluez.DefaultAdapter, "Bluetooth adapter to check")

	return cmd
}

func report(w io.Writer, ok bool, name, detail string) {
	mark := "ok  "
	if !ok {
		mark = "FAIL"
	}

	fmt.Fprintf(w, "[%s] %-13s %s\n", mark, name, detail)
}
