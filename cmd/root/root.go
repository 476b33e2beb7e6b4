// Package root contains the root command for the application.
package root

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/internal/config"
	"github.com/Shafi-prog/money-tracker-sub001/internal/container"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// logLevel overrides the configured log level when the flag is set.
var logLevel string

// Cmd is the root command.
var Cmd = &cobra.Command{
	Use:   "money-tracker",
	Short: "Ingests bank SMS/notifications and keeps balances, budgets and debts current.",
	Long: `money-tracker parses Arabic/English bank notification messages, deduplicates
them, extracts and classifies the transaction, and updates the account
balance, the salary-cycle budget and the debt index.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := logging.GetLogger()
		logger.Info("Use --help to see available commands")
	},
}

func init() {
	Cmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override the configured log level (debug, info, warn, error)")
}

// Setup loads the environment, configuration and wires the container. Every
// subcommand calls this at the top of its Run.
func Setup(ctx context.Context) (*container.Container, error) {
	config.LoadEnv(nil)
	cfg, err := config.InitializeConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = config.ParseLevel(logLevel)
	}
	return container.NewContainer(ctx, cfg)
}
