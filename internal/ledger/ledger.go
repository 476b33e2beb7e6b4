// Package ledger applies finalized transactions to the three derived
// stores: per-account running balances, per-category budget consumption and
// the net debt/transfer index. The three mutations are independent and
// order-free. The ledger trusts the dedup gate for idempotency; it does not
// re-derive it.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// BalanceRepository stores per-account running balances.
type BalanceRepository interface {
	Get(ctx context.Context, accountKey string) (models.BalanceRecord, bool, error)
	Save(ctx context.Context, rec models.BalanceRecord) error
}

// BudgetRepository stores per-category budget rows.
type BudgetRepository interface {
	Get(ctx context.Context, category string) (models.BudgetRecord, bool, error)
	Save(ctx context.Context, rec models.BudgetRecord) error
}

// DebtRepository stores the net debt/transfer index.
type DebtRepository interface {
	Get(ctx context.Context, counterparty, accountRef string) (models.DebtIndexEntry, bool, error)
	Save(ctx context.Context, entry models.DebtIndexEntry) error
}

// DefaultAlertThreshold is the budget warn threshold applied to rows created
// on first spend.
const DefaultAlertThreshold = 0.8

// Updater mutates the derived stores.
type Updater struct {
	balances  BalanceRepository
	budgets   BudgetRepository
	debts     DebtRepository
	salaryDay int
	logger    logging.Logger
	now       func() time.Time
}

// NewUpdater creates a ledger updater. salaryDay bounds the budget window.
func NewUpdater(balances BalanceRepository, budgets BudgetRepository, debts DebtRepository, salaryDay int, logger logging.Logger) *Updater {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Updater{
		balances:  balances,
		budgets:   budgets,
		debts:     debts,
		salaryDay: salaryDay,
		logger:    logger,
		now:       time.Now,
	}
}

// Result reports the post-update state used by the report layer.
type Result struct {
	Balance models.BalanceRecord
	Budget  models.BudgetRecord
}

// Apply runs the three mutations for a finalized transaction. accountKey is
// the resolved (or fallback) account identity and opening is that account's
// registered opening balance, used only to seed the first balance row;
// counterparty is set for internal/counterparty transfers tracked in the
// debt index. Each mutation failure is returned, but a budget or debt
// failure does not undo the balance write; retries are governed upstream by
// the queue.
func (u *Updater) Apply(ctx context.Context, accountKey string, opening decimal.Decimal, tx models.Transaction, internalTransfer bool, counterparty string) (Result, error) {
	var res Result

	balance, err := u.applyBalance(ctx, accountKey, opening, tx)
	if err != nil {
		return res, fmt.Errorf("ledger: balance: %w", err)
	}
	res.Balance = balance

	budget, err := u.applyBudget(ctx, tx)
	if err != nil {
		return res, fmt.Errorf("ledger: budget: %w", err)
	}
	res.Budget = budget

	if internalTransfer {
		if err := u.applyDebt(ctx, counterparty, accountKey, tx); err != nil {
			return res, fmt.Errorf("ledger: debt index: %w", err)
		}
	}

	return res, nil
}

func (u *Updater) applyBalance(ctx context.Context, accountKey string, opening decimal.Decimal, tx models.Transaction) (models.BalanceRecord, error) {
	rec, found, err := u.balances.Get(ctx, accountKey)
	if err != nil {
		return models.BalanceRecord{}, err
	}
	if !found {
		// First movement on this account: the running balance starts
		// from the registered opening balance, not from zero.
		rec = models.BalanceRecord{AccountKey: accountKey, Balance: opening}
	}

	if tx.IsIncoming {
		rec.Balance = rec.Balance.Add(tx.Amount)
	} else {
		rec.Balance = rec.Balance.Sub(tx.Amount)
	}
	rec.LastUpdatedAt = u.now()

	if err := u.balances.Save(ctx, rec); err != nil {
		return models.BalanceRecord{}, err
	}
	return rec, nil
}

func (u *Updater) applyBudget(ctx context.Context, tx models.Transaction) (models.BudgetRecord, error) {
	rec, found, err := u.budgets.Get(ctx, tx.Category)
	if err != nil {
		return models.BudgetRecord{}, err
	}
	if !found {
		rec = models.BudgetRecord{
			Category:       tx.Category,
			Budgeted:       decimal.Zero,
			Spent:          decimal.Zero,
			AlertThreshold: DefaultAlertThreshold,
		}
	}

	start, _ := CycleWindow(u.now(), u.salaryDay)
	if rec.CycleStart.Before(start) {
		// A new salary cycle began since the last write.
		rec.Spent = decimal.Zero
		rec.CycleStart = start
	}

	if !tx.IsIncoming {
		rec.Spent = rec.Spent.Add(tx.Amount.Abs())
	}
	rec.Remaining = rec.Budgeted.Sub(rec.Spent)
	rec.Status = budgetStatus(rec)

	if err := u.budgets.Save(ctx, rec); err != nil {
		return models.BudgetRecord{}, err
	}
	return rec, nil
}

// budgetStatus derives the alert tier from spent/budgeted against the row's
// threshold.
func budgetStatus(rec models.BudgetRecord) string {
	if !rec.Budgeted.IsPositive() {
		return models.BudgetSafe
	}
	ratio, _ := rec.Spent.Div(rec.Budgeted).Float64()
	threshold := rec.AlertThreshold
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	switch {
	case ratio >= 1.0:
		return models.BudgetOver
	case ratio >= threshold:
		return models.BudgetWarn
	case ratio >= 0.7*threshold:
		return models.BudgetNear
	default:
		return models.BudgetSafe
	}
}

// applyDebt accumulates the signed delta for an internal/counterparty
// transfer. Positive net means owed to the user: money we sent out is money
// they owe back.
func (u *Updater) applyDebt(ctx context.Context, counterparty, accountRef string, tx models.Transaction) error {
	if counterparty == "" {
		counterparty = tx.Merchant
	}
	entry, found, err := u.debts.Get(ctx, counterparty, accountRef)
	if err != nil {
		return err
	}
	if !found {
		entry = models.DebtIndexEntry{
			Counterparty: counterparty,
			AccountRef:   accountRef,
			NetOwed:      decimal.Zero,
		}
	}

	delta := tx.Amount
	if tx.IsIncoming {
		delta = delta.Neg()
	}
	entry.NetOwed = entry.NetOwed.Add(delta)
	entry.LastUpdatedAt = u.now()

	return u.debts.Save(ctx, entry)
}
