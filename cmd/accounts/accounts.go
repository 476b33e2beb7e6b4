// Package accounts contains the account registry commands: add, list,
// remove, alerts and balance calibration.
package accounts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Cmd is the accounts command group.
var Cmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the registered account registry.",
}

var (
	addType     string
	addNumber   string
	addOrg      string
	addAliases  []string
	addMine     bool
	addInternal bool
	addOpening  string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register an account, card or wallet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		opening := decimal.Zero
		if addOpening != "" {
			opening, err = decimal.NewFromString(addOpening)
			if err != nil {
				return fmt.Errorf("invalid opening balance %q: %w", addOpening, err)
			}
		}

		acc := models.Account{
			Name:           args[0],
			Type:           addType,
			Number:         addNumber,
			Organization:   addOrg,
			Aliases:        addAliases,
			IsMine:         addMine,
			IsInternal:     addInternal,
			OpeningBalance: opening,
		}
		if err := c.GetStore().Accounts().Save(cmd.Context(), acc); err != nil {
			return err
		}
		fmt.Printf("registered %s (key %s)\n", acc.Name, acc.Key())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		accs, err := c.GetStore().Accounts().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(accs) == 0 {
			fmt.Println("no accounts registered")
			return nil
		}
		for _, a := range accs {
			flags := ""
			if a.IsMine {
				flags += " mine"
			}
			if a.IsInternal {
				flags += " internal"
			}
			fmt.Printf("%-20s %-8s %-12s %-12s%s\n", a.Name, a.Type, a.Number, a.Organization, flags)
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove an account by its number or name.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.GetStore().Accounts().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show unknown-account alerts awaiting triage.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		alerts, err := c.GetStore().Accounts().UnknownAccounts(cmd.Context(), alertsLimit)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("no unknown-account alerts")
			return nil
		}
		for _, a := range alerts {
			fmt.Printf("%s  id=%-10s merchant=%-20s amount=%s\n",
				a.SeenAt.Format(time.RFC3339), a.Identifier, a.Merchant, a.Amount.StringFixed(2))
		}
		return nil
	},
}

var calibrateAsOf string

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <key> <observed-balance>",
	Short: "Reconcile a stored balance against a statement snapshot.",
	Long: `Takes the real balance observed on a statement at a point in time, replays
the processed transactions recorded after that point, and rewrites the stored
running balance so future updates start from truth.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		observed, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid balance %q: %w", args[1], err)
		}
		asOf := time.Now()
		if calibrateAsOf != "" {
			asOf, err = time.Parse("2006-01-02", calibrateAsOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of date %q (want YYYY-MM-DD): %w", calibrateAsOf, err)
			}
		}

		c, err := root.Setup(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		drift, err := c.GetUpdater().Calibrate(cmd.Context(), c.GetStore().Processed(), args[0], observed, asOf)
		if err != nil {
			return err
		}
		if drift.IsZero() {
			fmt.Println("balance already consistent")
		} else {
			fmt.Printf("corrected drift of %s\n", drift.StringFixed(2))
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", models.AccountTypeBank, "Account type (bank|card|wallet)")
	addCmd.Flags().StringVar(&addNumber, "number", "", "Account/card number or last-4")
	addCmd.Flags().StringVar(&addOrg, "org", "", "Issuing organization")
	addCmd.Flags().StringSliceVar(&addAliases, "alias", nil, "Merchant-text aliases (repeatable)")
	addCmd.Flags().BoolVar(&addMine, "mine", true, "Account belongs to the user")
	addCmd.Flags().BoolVar(&addInternal, "internal", false, "Counterparty tracked in the debt index")
	addCmd.Flags().StringVar(&addOpening, "opening", "", "Opening balance")

	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum alerts to show")
	calibrateCmd.Flags().StringVar(&calibrateAsOf, "as-of", "", "Snapshot date (YYYY-MM-DD), default today")

	Cmd.AddCommand(addCmd, listCmd, removeCmd, alertsCmd, calibrateCmd)
}
