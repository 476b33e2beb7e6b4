// Package export contains the CSV export command for processed transactions
// and unknown-account alerts.
package export

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
)

var (
	output string
	kind   string
)

// Cmd is the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored data as CSV.",
	Long: `Exports processed transactions (default) or unknown-account alerts as CSV,
to stdout or to a file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		out := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		switch kind {
		case "transactions":
			txs, err := c.GetStore().Processed().All(cmd.Context())
			if err != nil {
				return err
			}
			return gocsv.Marshal(&txs, out)
		case "alerts":
			alerts, err := c.GetStore().Accounts().UnknownAccounts(cmd.Context(), 10000)
			if err != nil {
				return err
			}
			return gocsv.Marshal(&alerts, out)
		default:
			return fmt.Errorf("unknown export kind %q (want transactions or alerts)", kind)
		}
	},
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	Cmd.Flags().StringVarP(&kind, "kind", "k", "transactions", "What to export: transactions|alerts")
}
