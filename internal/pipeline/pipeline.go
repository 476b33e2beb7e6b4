// Package pipeline runs one bank notification through the full chain:
// normalize, dedup gate, template match, heuristic seed, optional AI
// enrichment, sanitize, rule classification, account resolution, ledger
// update and report emission.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Shafi-prog/money-tracker-sub001/internal/accounts"
	"github.com/Shafi-prog/money-tracker-sub001/internal/ai"
	"github.com/Shafi-prog/money-tracker-sub001/internal/classifier"
	"github.com/Shafi-prog/money-tracker-sub001/internal/dedup"
	"github.com/Shafi-prog/money-tracker-sub001/internal/extract"
	"github.com/Shafi-prog/money-tracker-sub001/internal/fingerprint"
	"github.com/Shafi-prog/money-tracker-sub001/internal/ledger"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/report"
	"github.com/Shafi-prog/money-tracker-sub001/internal/templates"
	"github.com/Shafi-prog/money-tracker-sub001/internal/textnorm"
)

// TemplateSource yields the current compiled template matcher.
type TemplateSource interface {
	Matcher() (*templates.Matcher, error)
}

// ProcessedSink records fully processed transactions.
type ProcessedSink interface {
	Record(ctx context.Context, tx models.ProcessedTransaction) error
}

// Enricher is the optional AI stage. *ai.Adapter satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, raw string, seed models.Transaction) models.Transaction
}

var _ Enricher = (*ai.Adapter)(nil)

// Options carries the pipeline's behavioral switches.
type Options struct {
	// AutoLearn writes AI- or rule-derived categories back into merchant
	// memory so later messages from the same merchant stay classified.
	AutoLearn bool
	// Owner scopes classifier rules; empty means single-tenant.
	Owner string
}

// Pipeline processes messages end to end.
type Pipeline struct {
	gate       *dedup.Gate
	tmpl       TemplateSource
	enricher   Enricher
	classifier *classifier.Classifier
	resolver   *accounts.Resolver
	updater    *ledger.Updater
	processed  ProcessedSink
	notifier   report.Notifier
	opts       Options
	logger     logging.Logger
	now        func() time.Time
}

// New wires a pipeline. enricher may be nil when no AI provider is
// configured; notifier may be nil to skip report emission.
func New(
	gate *dedup.Gate,
	tmpl TemplateSource,
	enricher Enricher,
	cls *classifier.Classifier,
	resolver *accounts.Resolver,
	updater *ledger.Updater,
	processed ProcessedSink,
	notifier report.Notifier,
	opts Options,
	logger logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Pipeline{
		gate:       gate,
		tmpl:       tmpl,
		enricher:   enricher,
		classifier: cls,
		resolver:   resolver,
		updater:    updater,
		processed:  processed,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Outcome reports what one Process call did.
type Outcome struct {
	Status      string
	Fingerprint string
	Transaction models.Transaction
	AccountKey  string
	Ledger      ledger.Result
}

// Process runs one message through the chain. A duplicate returns
// StatusSkipDup with no side effects beyond the dedup log append. Errors
// after extraction carry the fingerprint so the caller can stamp the queue
// row.
func (p *Pipeline) Process(ctx context.Context, msg models.RawMessage) (Outcome, error) {
	norm := textnorm.Normalize(msg.Text)
	fp := fingerprint.Build(norm).String()

	out := Outcome{Fingerprint: fp}
	if p.gate.Seen(ctx, fp) {
		p.logger.WithFields(
			logging.Field{Key: logging.FieldFingerprint, Value: fp},
			logging.Field{Key: logging.FieldSource, Value: msg.Source},
		).Info("Duplicate message skipped")
		out.Status = models.StatusSkipDup
		return out, nil
	}

	tx, templateMatched := p.extract(ctx, norm)

	tx = p.classifier.Apply(ctx, norm, tx, p.opts.Owner)

	res := p.resolver.Resolve(ctx, tx, norm)
	out.AccountKey = res.AccountKey

	internalTransfer := tx.Type == models.TypeTransfer && res.Account.IsInternal
	ledgerRes, err := p.updater.Apply(ctx, res.AccountKey, res.Account.OpeningBalance, tx, internalTransfer, counterpartyFor(res, tx))
	if err != nil {
		out.Transaction = tx
		return out, err
	}
	out.Ledger = ledgerRes
	out.Transaction = tx

	if p.opts.AutoLearn && !templateMatched {
		if err := p.classifier.Learn(ctx, tx.Merchant, tx.Category, tx.Type); err != nil {
			p.logger.WithError(err).WithField(logging.FieldMerchant, tx.Merchant).
				Warn("Merchant memory writeback failed")
		}
	}

	if p.processed != nil {
		rec := models.ProcessedTransaction{
			ID:          uuid.NewString(),
			Fingerprint: fp,
			ProcessedAt: p.now(),
			AccountKey:  res.AccountKey,
			Merchant:    tx.Merchant,
			Amount:      tx.Amount,
			Currency:    tx.Currency,
			Category:    tx.Category,
			Type:        tx.Type,
			IsIncoming:  tx.IsIncoming,
			RawText:     msg.Text,
		}
		if err := p.processed.Record(ctx, rec); err != nil {
			// History is for export/calibration; losing one row must
			// not fail the message.
			p.logger.WithError(err).Warn("Processed-transaction record failed")
		}
	}

	p.emitReport(ctx, tx, ledgerRes)

	out.Status = models.StatusOK
	return out, nil
}

// extract produces the sanitized transaction. The heuristic always runs and
// seeds every field; a template match overrides the fields it claims and
// suppresses AI enrichment, since template output is authoritative.
func (p *Pipeline) extract(ctx context.Context, norm string) (models.Transaction, bool) {
	seed := extract.Heuristic(norm)

	if p.tmpl != nil {
		matcher, err := p.tmpl.Matcher()
		if err != nil {
			p.logger.WithError(err).Warn("Template rules unavailable, falling back to heuristics")
		} else if res := matcher.Match(norm); res.OK {
			candidate := map[string]interface{}{}
			if !res.Amount.IsZero() {
				candidate["amount"] = res.Amount.String()
			}
			if res.Merchant != "" {
				candidate["merchant"] = res.Merchant
			}
			if res.Card != "" {
				candidate["card_num"] = res.Card
			}
			tx := extract.Sanitize(seed, candidate)
			p.logger.WithField(logging.FieldRule, res.Organization).Debug("Template match used")
			return tx, true
		}
	}

	if p.enricher != nil {
		seed = p.enricher.Enrich(ctx, norm, seed)
	}
	return seed, false
}

// counterpartyFor picks the debt-index counterparty: the resolved account's
// display name when the transfer hit a registered internal account, else the
// merchant text.
func counterpartyFor(res accounts.Resolution, tx models.Transaction) string {
	if res.Resolved && res.Account.Name != "" {
		return res.Account.Name
	}
	return tx.Merchant
}

func (p *Pipeline) emitReport(ctx context.Context, tx models.Transaction, res ledger.Result) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, report.Summary(tx, res)); err != nil {
		// Report delivery is best-effort; the ledger write stands.
		p.logger.WithError(err).Warn("Report delivery failed")
	}
}
