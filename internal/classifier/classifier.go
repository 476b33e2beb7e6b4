// Package classifier refines an extracted transaction with stored substring
// rules, learned merchant memory and generic keyword fallbacks.
//
// Precedence, most specific first: template extraction (upstream), explicit
// classifier rule, merchant memory, then generic keyword fallback applied
// only while category/type are still at their defaults. The priority is
// deliberate: an operator-maintained rule or a learned correction must never
// be clobbered by a generic guess.
package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/textnorm"
)

// MemoryRepository is the persistent merchant-memory store.
type MemoryRepository interface {
	Get(ctx context.Context, merchantKey string) (models.MerchantMemory, bool, error)
	Upsert(ctx context.Context, mem models.MerchantMemory) error
}

// RuleSource supplies the ordered classifier rules.
type RuleSource interface {
	Rules(ctx context.Context) ([]models.ClassifierRule, error)
}

// Classifier applies rules and merchant memory to transactions.
type Classifier struct {
	rules  RuleSource
	memory MemoryRepository
	logger logging.Logger
	now    func() time.Time
}

// New creates a classifier. memory may be nil, disabling sticky overrides.
func New(rules RuleSource, memory MemoryRepository, logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Classifier{
		rules:  rules,
		memory: memory,
		logger: logger,
		now:    time.Now,
	}
}

// Apply refines tx using raw message text. owner scopes rule matching; rules
// without an owner scope apply to everyone. Apply never fails: storage
// errors degrade to the transaction as-is.
func (c *Classifier) Apply(ctx context.Context, rawText string, tx models.Transaction, owner string) models.Transaction {
	normText := strings.ToLower(textnorm.Normalize(rawText))
	merchantKey := textnorm.NormalizeMerchant(tx.Merchant)

	tx = c.applyRules(ctx, normText, merchantKey, tx, owner)
	tx = c.applyMemory(ctx, merchantKey, tx)
	tx = applyGenericFallback(normText, tx)
	return tx
}

// applyRules scans the ordered rules; the first match assigns its non-empty
// fields and stops the scan.
func (c *Classifier) applyRules(ctx context.Context, normText, merchantKey string, tx models.Transaction, owner string) models.Transaction {
	if c.rules == nil {
		return tx
	}
	rules, err := c.rules.Rules(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Classifier rules unavailable, skipping rule stage")
		return tx
	}

	for _, rule := range rules {
		if rule.OwnerScope != "" && rule.OwnerScope != owner {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(rule.MatchKey))
		if key == "" {
			continue
		}
		if !strings.Contains(normText, key) && !strings.Contains(merchantKey, key) {
			continue
		}

		if rule.Category != "" {
			tx.Category = rule.Category
		}
		if rule.Type != "" {
			tx.Type = rule.Type
		}
		if rule.IsIncoming != nil {
			tx.IsIncoming = *rule.IsIncoming
		}
		if rule.AccNum != "" {
			tx.AccNum = rule.AccNum
		}
		if rule.CardNum != "" {
			tx.CardNum = rule.CardNum
		}
		c.logger.WithField(logging.FieldRule, rule.MatchKey).Debug("Classifier rule matched")
		break
	}
	return tx
}

// applyMemory forces the learned category for a known merchant. The override
// is sticky: once a merchant has been corrected, ad-hoc classification never
// undoes it.
func (c *Classifier) applyMemory(ctx context.Context, merchantKey string, tx models.Transaction) models.Transaction {
	if c.memory == nil || merchantKey == "" {
		return tx
	}
	mem, found, err := c.memory.Get(ctx, merchantKey)
	if err != nil {
		c.logger.WithError(err).Warn("Merchant memory lookup failed")
		return tx
	}
	if !found {
		return tx
	}

	tx.Category = mem.Category
	if mem.Type != "" {
		tx.Type = mem.Type
	}

	mem.HitCount++
	mem.LastSeenAt = c.now()
	if err := c.memory.Upsert(ctx, mem); err != nil {
		c.logger.WithError(err).Warn("Merchant memory hit-count update failed")
	}

	c.logger.WithFields(
		logging.Field{Key: logging.FieldMerchant, Value: merchantKey},
		logging.Field{Key: logging.FieldCategory, Value: mem.Category},
	).Debug("Merchant memory override applied")
	return tx
}

// Learn memorizes a category for a merchant so future transactions stick to
// it. Used both for manual corrections and, when enabled, for auto-learning
// provider output.
func (c *Classifier) Learn(ctx context.Context, merchant, category, txType string) error {
	if c.memory == nil {
		return nil
	}
	key := textnorm.NormalizeMerchant(merchant)
	if key == "" || category == "" || category == models.CategoryOther {
		return nil
	}

	mem, found, err := c.memory.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		mem = models.MerchantMemory{
			MerchantKey: key,
			DisplayName: strings.TrimSpace(merchant),
		}
	}
	mem.Category = category
	if txType != "" {
		mem.Type = txType
	}
	mem.LastSeenAt = c.now()
	return c.memory.Upsert(ctx, mem)
}

var currencyHints = map[string]string{
	"usd":  "USD",
	"$":    "USD",
	"دولار": "USD",
	"eur":  "EUR",
	"يورو": "EUR",
	"aed":  "AED",
	"درهم": "AED",
	"kwd":  "KWD",
	"egp":  "EGP",
}

var genericFallbacks = []struct {
	keywords []string
	category string
	txType   string
}{
	{[]string{"فاتورة", "سداد", "bill", "sadad"}, models.CategoryBills, models.TypeBill},
	{[]string{"شراء", "pos", "purchase", "متجر", "مدى"}, models.CategoryGeneralPurchases, models.TypePurchase},
	{[]string{"حوالة", "تحويل", "transfer"}, models.CategoryOutgoingTransfers, models.TypeTransfer},
}

// applyGenericFallback detects non-default currencies and infers a
// bill/purchase/transfer category, but only while the prior stages left the
// category/type at their defaults.
func applyGenericFallback(normText string, tx models.Transaction) models.Transaction {
	if tx.Currency == models.DefaultCurrency {
		for hint, code := range currencyHints {
			if strings.Contains(normText, hint) {
				tx.Currency = code
				break
			}
		}
	}

	if tx.Category != models.CategoryOther && tx.Type != "" {
		return tx
	}
	for _, fb := range genericFallbacks {
		for _, kw := range fb.keywords {
			if !strings.Contains(normText, kw) {
				continue
			}
			if tx.Category == models.CategoryOther {
				category := fb.category
				if fb.txType == models.TypeTransfer && tx.IsIncoming {
					category = models.CategoryIncomingTransfers
				}
				tx.Category = category
			}
			if tx.Type == "" {
				tx.Type = fb.txType
			}
			return tx
		}
	}
	return tx
}
