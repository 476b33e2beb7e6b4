package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/ledger"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// BalanceRepo persists per-account running balances.
type BalanceRepo struct {
	store *Store
}

var _ ledger.BalanceRepository = (*BalanceRepo)(nil)

// Balances returns the balance view of the store.
func (s *Store) Balances() *BalanceRepo {
	return &BalanceRepo{store: s}
}

func (b *BalanceRepo) Get(ctx context.Context, accountKey string) (models.BalanceRecord, bool, error) {
	var rec models.BalanceRecord
	var balance string
	err := b.store.db.QueryRowContext(ctx,
		`SELECT account_key, balance, last_updated_at FROM balances WHERE account_key = ?`,
		accountKey).Scan(&rec.AccountKey, &balance, &rec.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BalanceRecord{}, false, nil
	}
	if err != nil {
		return models.BalanceRecord{}, false, fmt.Errorf("storage: get balance: %w", err)
	}
	rec.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return models.BalanceRecord{}, false, fmt.Errorf("storage: parse balance %q: %w", balance, err)
	}
	return rec, true, nil
}

func (b *BalanceRepo) Save(ctx context.Context, rec models.BalanceRecord) error {
	_, err := b.store.db.ExecContext(ctx,
		`INSERT INTO balances (account_key, balance, last_updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(account_key) DO UPDATE SET
			balance = excluded.balance,
			last_updated_at = excluded.last_updated_at`,
		rec.AccountKey, rec.Balance.String(), rec.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: save balance: %w", err)
	}
	return nil
}

// BudgetRepo persists per-category budget rows.
type BudgetRepo struct {
	store *Store
}

var _ ledger.BudgetRepository = (*BudgetRepo)(nil)

// Budgets returns the budget view of the store.
func (s *Store) Budgets() *BudgetRepo {
	return &BudgetRepo{store: s}
}

func (b *BudgetRepo) Get(ctx context.Context, category string) (models.BudgetRecord, bool, error) {
	var rec models.BudgetRecord
	var budgeted, spent, remaining string
	err := b.store.db.QueryRowContext(ctx,
		`SELECT category, budgeted, spent, remaining, alert_threshold, status, cycle_start
		 FROM budgets WHERE category = ?`, category).
		Scan(&rec.Category, &budgeted, &spent, &remaining, &rec.AlertThreshold, &rec.Status, &rec.CycleStart)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BudgetRecord{}, false, nil
	}
	if err != nil {
		return models.BudgetRecord{}, false, fmt.Errorf("storage: get budget: %w", err)
	}
	if rec.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
		return models.BudgetRecord{}, false, fmt.Errorf("storage: parse budgeted %q: %w", budgeted, err)
	}
	if rec.Spent, err = decimal.NewFromString(spent); err != nil {
		return models.BudgetRecord{}, false, fmt.Errorf("storage: parse spent %q: %w", spent, err)
	}
	if rec.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return models.BudgetRecord{}, false, fmt.Errorf("storage: parse remaining %q: %w", remaining, err)
	}
	return rec, true, nil
}

func (b *BudgetRepo) Save(ctx context.Context, rec models.BudgetRecord) error {
	_, err := b.store.db.ExecContext(ctx,
		`INSERT INTO budgets (category, budgeted, spent, remaining, alert_threshold, status, cycle_start)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET
			budgeted = excluded.budgeted,
			spent = excluded.spent,
			remaining = excluded.remaining,
			alert_threshold = excluded.alert_threshold,
			status = excluded.status,
			cycle_start = excluded.cycle_start`,
		rec.Category, rec.Budgeted.String(), rec.Spent.String(), rec.Remaining.String(),
		rec.AlertThreshold, rec.Status, rec.CycleStart)
	if err != nil {
		return fmt.Errorf("storage: save budget: %w", err)
	}
	return nil
}

// List returns all budget rows ordered by category.
func (b *BudgetRepo) List(ctx context.Context) ([]models.BudgetRecord, error) {
	rows, err := b.store.db.QueryContext(ctx,
		`SELECT category, budgeted, spent, remaining, alert_threshold, status, cycle_start
		 FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("storage: list budgets: %w", err)
	}
	defer rows.Close()

	var out []models.BudgetRecord
	for rows.Next() {
		var rec models.BudgetRecord
		var budgeted, spent, remaining string
		if err := rows.Scan(&rec.Category, &budgeted, &spent, &remaining, &rec.AlertThreshold, &rec.Status, &rec.CycleStart); err != nil {
			return nil, fmt.Errorf("storage: scan budget: %w", err)
		}
		if rec.Budgeted, err = decimal.NewFromString(budgeted); err != nil {
			return nil, err
		}
		if rec.Spent, err = decimal.NewFromString(spent); err != nil {
			return nil, err
		}
		if rec.Remaining, err = decimal.NewFromString(remaining); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DebtRepo persists the net debt/transfer index.
type DebtRepo struct {
	store *Store
}

var _ ledger.DebtRepository = (*DebtRepo)(nil)

// Debts returns the debt-index view of the store.
func (s *Store) Debts() *DebtRepo {
	return &DebtRepo{store: s}
}

func (d *DebtRepo) Get(ctx context.Context, counterparty, accountRef string) (models.DebtIndexEntry, bool, error) {
	var entry models.DebtIndexEntry
	var owed string
	err := d.store.db.QueryRowContext(ctx,
		`SELECT counterparty, account_ref, net_owed, last_updated_at
		 FROM debt_index WHERE counterparty = ? AND account_ref = ?`,
		counterparty, accountRef).
		Scan(&entry.Counterparty, &entry.AccountRef, &owed, &entry.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DebtIndexEntry{}, false, nil
	}
	if err != nil {
		return models.DebtIndexEntry{}, false, fmt.Errorf("storage: get debt entry: %w", err)
	}
	entry.NetOwed, err = decimal.NewFromString(owed)
	if err != nil {
		return models.DebtIndexEntry{}, false, fmt.Errorf("storage: parse net owed %q: %w", owed, err)
	}
	return entry, true, nil
}

func (d *DebtRepo) Save(ctx context.Context, entry models.DebtIndexEntry) error {
	_, err := d.store.db.ExecContext(ctx,
		`INSERT INTO debt_index (counterparty, account_ref, net_owed, last_updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(counterparty, account_ref) DO UPDATE SET
			net_owed = excluded.net_owed,
			last_updated_at = excluded.last_updated_at`,
		entry.Counterparty, entry.AccountRef, entry.NetOwed.String(), entry.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: save debt entry: %w", err)
	}
	return nil
}

// List returns all debt entries ordered by counterparty.
func (d *DebtRepo) List(ctx context.Context) ([]models.DebtIndexEntry, error) {
	rows, err := d.store.db.QueryContext(ctx,
		`SELECT counterparty, account_ref, net_owed, last_updated_at
		 FROM debt_index ORDER BY counterparty, account_ref`)
	if err != nil {
		return nil, fmt.Errorf("storage: list debt entries: %w", err)
	}
	defer rows.Close()

	var out []models.DebtIndexEntry
	for rows.Next() {
		var entry models.DebtIndexEntry
		var owed string
		if err := rows.Scan(&entry.Counterparty, &entry.AccountRef, &owed, &entry.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan debt entry: %w", err)
		}
		if entry.NetOwed, err = decimal.NewFromString(owed); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ProcessedLog persists fully processed transactions for export and
// calibration replay.
type ProcessedLog struct {
	store *Store
}

var _ ledger.HistorySource = (*ProcessedLog)(nil)

// Processed returns the processed-transaction view of the store.
func (s *Store) Processed() *ProcessedLog {
	return &ProcessedLog{store: s}
}

// Record appends one processed transaction.
func (p *ProcessedLog) Record(ctx context.Context, tx models.ProcessedTransaction) error {
	_, err := p.store.db.ExecContext(ctx,
		`INSERT INTO processed_transactions
			(id, fingerprint, processed_at, account_key, merchant, amount, currency, category, type, is_incoming, raw_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Fingerprint, tx.ProcessedAt, tx.AccountKey, tx.Merchant,
		tx.Amount.String(), tx.Currency, tx.Category, tx.Type, tx.IsIncoming, tx.RawText)
	if err != nil {
		return fmt.Errorf("storage: record processed transaction: %w", err)
	}
	return nil
}

// History returns processed transactions for one account since a point in
// time, oldest first.
func (p *ProcessedLog) History(ctx context.Context, accountKey string, since time.Time) ([]models.ProcessedTransaction, error) {
	rows, err := p.store.db.QueryContext(ctx,
		`SELECT id, fingerprint, processed_at, account_key, merchant, amount, currency, category, type, is_incoming, raw_text
		 FROM processed_transactions
		 WHERE account_key = ? AND processed_at >= ?
		 ORDER BY processed_at ASC`, accountKey, since)
	if err != nil {
		return nil, fmt.Errorf("storage: query history: %w", err)
	}
	defer rows.Close()
	return scanProcessed(rows)
}

// All returns every processed transaction, oldest first. Used by the CSV
// export surface.
func (p *ProcessedLog) All(ctx context.Context) ([]models.ProcessedTransaction, error) {
	rows, err := p.store.db.QueryContext(ctx,
		`SELECT id, fingerprint, processed_at, account_key, merchant, amount, currency, category, type, is_incoming, raw_text
		 FROM processed_transactions ORDER BY processed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query processed transactions: %w", err)
	}
	defer rows.Close()
	return scanProcessed(rows)
}

func scanProcessed(rows *sql.Rows) ([]models.ProcessedTransaction, error) {
	var out []models.ProcessedTransaction
	for rows.Next() {
		var tx models.ProcessedTransaction
		var amount string
		if err := rows.Scan(&tx.ID, &tx.Fingerprint, &tx.ProcessedAt, &tx.AccountKey, &tx.Merchant,
			&amount, &tx.Currency, &tx.Category, &tx.Type, &tx.IsIncoming, &tx.RawText); err != nil {
			return nil, fmt.Errorf("storage: scan processed transaction: %w", err)
		}
		var err error
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("storage: parse amount %q: %w", amount, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
