// Package batch contains the command that drains one batch from the queue.
// Meant for cron-style invocation where no long-running worker exists.
package batch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
)

// Cmd is the batch command.
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Process one batch of queued messages and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.GetWorker().RunBatch(cmd.Context())
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Println("another batch holds the lock, nothing done")
			return nil
		}
		fmt.Printf("fetched %d, ok %d, duplicates %d, failed %d\n",
			res.Fetched, res.Processed, res.Duplicates, res.Failed)
		return nil
	},
}
