package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/accounts"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// AccountRegistry persists registered accounts and unknown-account alerts.
type AccountRegistry struct {
	store *Store
}

var (
	_ accounts.Repository = (*AccountRegistry)(nil)
	_ accounts.AlertSink  = (*AccountRegistry)(nil)
)

// Accounts returns the account registry view of the store.
func (s *Store) Accounts() *AccountRegistry {
	return &AccountRegistry{store: s}
}

// aliasSeparator joins the alias list into a single column. Aliases are
// normalized merchant text, so the separator cannot occur inside one.
const aliasSeparator = "\n"

// List returns every registered account.
func (r *AccountRegistry) List(ctx context.Context) ([]models.Account, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT name, type, number, organization, aliases, is_mine, is_internal, opening_balance
		 FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var a models.Account
		var aliases, opening string
		if err := rows.Scan(&a.Name, &a.Type, &a.Number, &a.Organization, &aliases, &a.IsMine, &a.IsInternal, &opening); err != nil {
			return nil, fmt.Errorf("storage: scan account: %w", err)
		}
		if aliases != "" {
			a.Aliases = strings.Split(aliases, aliasSeparator)
		}
		a.OpeningBalance, err = decimal.NewFromString(opening)
		if err != nil {
			return nil, fmt.Errorf("storage: parse opening balance %q: %w", opening, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Save inserts or replaces an account keyed by Account.Key().
func (r *AccountRegistry) Save(ctx context.Context, a models.Account) error {
	if a.Key() == "" {
		return fmt.Errorf("storage: account needs a name or number")
	}
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO accounts (key, name, type, number, organization, aliases, is_mine, is_internal, opening_balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			number = excluded.number,
			organization = excluded.organization,
			aliases = excluded.aliases,
			is_mine = excluded.is_mine,
			is_internal = excluded.is_internal,
			opening_balance = excluded.opening_balance`,
		a.Key(), a.Name, a.Type, a.Number, a.Organization,
		strings.Join(a.Aliases, aliasSeparator), a.IsMine, a.IsInternal,
		a.OpeningBalance.String())
	if err != nil {
		return fmt.Errorf("storage: save account: %w", err)
	}
	return nil
}

// Delete removes the account with the given key. Deleting a missing account
// is not an error.
func (r *AccountRegistry) Delete(ctx context.Context, key string) error {
	_, err := r.store.db.ExecContext(ctx, `DELETE FROM accounts WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("storage: delete account: %w", err)
	}
	return nil
}

// RecordUnknownAccount stores a triage alert for an unresolved identifier.
func (r *AccountRegistry) RecordUnknownAccount(ctx context.Context, alert models.UnknownAccountAlert) error {
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO unknown_account_alerts (id, seen_at, organization, identifier, merchant, amount, raw_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.SeenAt, alert.Organization, alert.Identifier,
		alert.Merchant, alert.Amount.String(), alert.RawText)
	if err != nil {
		return fmt.Errorf("storage: record unknown account: %w", err)
	}
	return nil
}

// UnknownAccounts returns recorded alerts, newest first.
func (r *AccountRegistry) UnknownAccounts(ctx context.Context, limit int) ([]models.UnknownAccountAlert, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, seen_at, organization, identifier, merchant, amount, raw_text
		 FROM unknown_account_alerts ORDER BY seen_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list unknown accounts: %w", err)
	}
	defer rows.Close()

	var out []models.UnknownAccountAlert
	for rows.Next() {
		var a models.UnknownAccountAlert
		var amount string
		if err := rows.Scan(&a.ID, &a.SeenAt, &a.Organization, &a.Identifier, &a.Merchant, &amount, &a.RawText); err != nil {
			return nil, fmt.Errorf("storage: scan unknown account: %w", err)
		}
		a.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("storage: parse alert amount %q: %w", amount, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
