package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wagiedev/quietcool-bridge-go/internal/oneshot"
)

func newScanCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for QuietCool fans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := oneshot.New(a.log, a.options()).Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			if len(result.Fans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fans found")

				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")

			for _, fan := range result.Fans {
				fmt.Fprintf(w, "%s\t%s\t%d\n", fan.Address, fan.Name, fan.RSSI)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func newPairCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair <address> [phone-id]",
		Short: "Pair with a fan in pairing mode",
		Long: `Pair with the fan at address. Hold the Pair button on the controller for
about five seconds until its LED blinks, then run this command. A phone id is
generated when none is given; save it in fan.phone_id.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var phoneID string
			if len(args) == 2 {
				phoneID = args[1]
			}

			result, err := oneshot.New(a.log, a.options()).Pair(cmd.Context(), args[0], phoneID)
			if err != nil {
				return fmt.Errorf("pair: %w", err)
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			if !result.Paired {
				return fmt.Errorf("fan not paired")
			}

			return nil
		},
	}

	return cmd
}

func newGenerateIDCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-id",
		Short: "Generate a new random phone id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := oneshot.GenerateID()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id)

			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
