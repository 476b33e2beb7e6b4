// Package process contains the command that runs a single message through
// the pipeline synchronously, bypassing the queue. Useful for testing rules
// and for one-off backfills.
package process

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

var source string

// Cmd is the process command.
var Cmd = &cobra.Command{
	Use:   "process [message]",
	Short: "Run one message through the pipeline immediately.",
	Long: `Processes a single notification text without enqueueing it. The message is
taken from the argument, or from stdin when no argument is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			scanner := bufio.NewScanner(os.Stdin)
			var lines []string
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			text = strings.Join(lines, "\n")
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("no message text given")
		}

		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		out, err := c.GetPipeline().Process(cmd.Context(), models.RawMessage{
			Text:       text,
			Source:     source,
			ReceivedAt: time.Now(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("status:      %s\n", out.Status)
		fmt.Printf("fingerprint: %s\n", out.Fingerprint)
		if out.Status == models.StatusOK {
			tx := out.Transaction
			fmt.Printf("merchant:    %s\n", tx.Merchant)
			fmt.Printf("amount:      %s %s\n", tx.Amount.StringFixed(2), tx.Currency)
			fmt.Printf("category:    %s\n", tx.Category)
			fmt.Printf("type:        %s\n", tx.Type)
			fmt.Printf("incoming:    %t\n", tx.IsIncoming)
			fmt.Printf("account:     %s\n", out.AccountKey)
			fmt.Printf("balance:     %s\n", out.Ledger.Balance.Balance.StringFixed(2))
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&source, "source", "s", "cli", "Message source label")
}
