// Package accounts maps extracted card/account identifiers to registered
// account entities. Unknown identifiers are a triage signal, not a failure:
// they produce an alert row and the transaction keeps flowing under whatever
// identifier was extracted.
package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/textnorm"
)

// Repository is the account registry store.
type Repository interface {
	List(ctx context.Context) ([]models.Account, error)
	Save(ctx context.Context, a models.Account) error
	Delete(ctx context.Context, key string) error
}

// AlertSink records unknown-account alerts for human triage.
type AlertSink interface {
	RecordUnknownAccount(ctx context.Context, alert models.UnknownAccountAlert) error
}

// Resolution is the outcome of resolving a transaction's identifiers.
type Resolution struct {
	Account      models.Account
	AccountKey   string
	Organization string
	Resolved     bool
}

// Resolver indexes the registry for identifier lookup.
type Resolver struct {
	repo   Repository
	alerts AlertSink
	logger logging.Logger
	now    func() time.Time
}

// NewResolver creates a resolver over the registry. alerts may be nil.
func NewResolver(repo Repository, alerts AlertSink, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Resolver{
		repo:   repo,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// index maps identifiers and aliases to accounts, and groups accounts by
// organization.
type index struct {
	byNumber       map[string]models.Account
	byAlias        map[string]models.Account
	byOrganization map[string][]models.Account
}

func buildIndex(accounts []models.Account) index {
	idx := index{
		byNumber:       make(map[string]models.Account),
		byAlias:        make(map[string]models.Account),
		byOrganization: make(map[string][]models.Account),
	}
	for _, a := range accounts {
		if a.Number != "" {
			idx.byNumber[a.Number] = a
			// Masked notifications usually carry only the trailing
			// digits.
			if len(a.Number) > 4 {
				idx.byNumber[a.Number[len(a.Number)-4:]] = a
			}
		}
		for _, alias := range a.Aliases {
			if key := textnorm.NormalizeMerchant(alias); key != "" {
				idx.byAlias[key] = a
			}
		}
		org := a.Organization
		idx.byOrganization[org] = append(idx.byOrganization[org], a)
	}
	return idx
}

// Resolve attaches canonical account info to the transaction's extracted
// identifiers. On a miss it records an alert and returns an unresolved
// Resolution keyed by the raw identifier.
func (r *Resolver) Resolve(ctx context.Context, tx models.Transaction, rawText string) Resolution {
	identifier := firstNonEmpty(tx.CardNum, tx.AccNum)

	registered, err := r.repo.List(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Account registry unavailable, resolving by raw identifier")
		return Resolution{AccountKey: fallbackKey(identifier)}
	}
	idx := buildIndex(registered)

	if identifier != "" {
		if a, ok := idx.byNumber[identifier]; ok {
			return Resolution{Account: a, AccountKey: a.Key(), Organization: a.Organization, Resolved: true}
		}
	}
	if key := textnorm.NormalizeMerchant(tx.Merchant); key != "" {
		if a, ok := idx.byAlias[key]; ok {
			return Resolution{Account: a, AccountKey: a.Key(), Organization: a.Organization, Resolved: true}
		}
	}

	r.recordUnknown(ctx, tx, identifier, rawText)
	return Resolution{AccountKey: fallbackKey(identifier)}
}

func (r *Resolver) recordUnknown(ctx context.Context, tx models.Transaction, identifier, rawText string) {
	r.logger.WithFields(
		logging.Field{Key: logging.FieldAccount, Value: identifier},
		logging.Field{Key: logging.FieldMerchant, Value: tx.Merchant},
	).Warn("Unknown account identifier, recording alert")

	if r.alerts == nil {
		return
	}
	alert := models.UnknownAccountAlert{
		ID:         uuid.NewString(),
		SeenAt:     r.now(),
		Identifier: identifier,
		Merchant:   tx.Merchant,
		Amount:     tx.Amount,
		RawText:    rawText,
	}
	if err := r.alerts.RecordUnknownAccount(ctx, alert); err != nil {
		r.logger.WithError(err).Warn("Failed to record unknown-account alert")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// fallbackKey keeps unresolved transactions ledgered under the extracted
// identifier so nothing is lost while triage happens.
func fallbackKey(identifier string) string {
	if identifier == "" {
		return "unassigned"
	}
	return identifier
}
