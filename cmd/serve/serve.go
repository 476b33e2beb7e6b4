// Package serve contains the command that runs the ingestion HTTP server
// together with the background batch worker.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shafi-prog/money-tracker-sub001/cmd/root"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

var listenAddr string

// Cmd is the serve command.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion webhook server and the batch worker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := root.Setup(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		logger := c.GetLogger()

		addr := listenAddr
		if addr == "" {
			addr = c.GetConfig().Server.ListenAddr
		}

		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           c.GetServer().Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Ingestion server listening", logging.Field{Key: "addr", Value: addr})
			errCh <- httpSrv.ListenAndServe()
		}()
		go func() {
			if err := c.GetWorker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Worker stopped")
			}
		}()

		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}

func init() {
	Cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides config)")
}
