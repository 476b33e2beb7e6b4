package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// HistorySource yields processed transactions for one account since a point
// in time, oldest first.
type HistorySource interface {
	History(ctx context.Context, accountKey string, since time.Time) ([]models.ProcessedTransaction, error)
}

// Calibrate reconciles the stored running balance for an account against a
// statement snapshot: given the real balance observed at asOf, it replays the
// processed history after that point and rewrites the balance row so future
// updates start from truth. It returns the drift that was corrected.
func (u *Updater) Calibrate(ctx context.Context, history HistorySource, accountKey string, observed decimal.Decimal, asOf time.Time) (decimal.Decimal, error) {
	txs, err := history.History(ctx, accountKey, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: calibrate: load history: %w", err)
	}

	expected := observed
	for _, tx := range txs {
		if tx.IsIncoming {
			expected = expected.Add(tx.Amount)
		} else {
			expected = expected.Sub(tx.Amount)
		}
	}

	rec, found, err := u.balances.Get(ctx, accountKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: calibrate: load balance: %w", err)
	}
	if !found {
		rec = models.BalanceRecord{AccountKey: accountKey}
	}

	drift := expected.Sub(rec.Balance)
	rec.Balance = expected
	rec.LastUpdatedAt = u.now()
	if err := u.balances.Save(ctx, rec); err != nil {
		return decimal.Zero, fmt.Errorf("ledger: calibrate: save balance: %w", err)
	}

	if !drift.IsZero() {
		u.logger.WithFields(
			logging.Field{Key: logging.FieldAccount, Value: accountKey},
			logging.Field{Key: "drift", Value: drift.String()},
			logging.Field{Key: "replayed", Value: len(txs)},
		).Warn("balance calibrated with nonzero drift")
	}
	return drift, nil
}
