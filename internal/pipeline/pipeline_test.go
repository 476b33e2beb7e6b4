package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/accounts"
	"github.com/Shafi-prog/money-tracker-sub001/internal/classifier"
	"github.com/Shafi-prog/money-tracker-sub001/internal/dedup"
	"github.com/Shafi-prog/money-tracker-sub001/internal/extract"
	"github.com/Shafi-prog/money-tracker-sub001/internal/ledger"
	"github.com/Shafi-prog/money-tracker-sub001/internal/lock"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/templates"
)

// --- in-memory collaborators ---

type memDedupRepo struct {
	mu   sync.Mutex
	recs []models.DedupRecord
}

func (m *memDedupRepo) Recent(_ context.Context, limit int) ([]models.DedupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DedupRecord
	for i := len(m.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

func (m *memDedupRepo) Append(_ context.Context, rec models.DedupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memDedupRepo) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type memMemory struct {
	rows map[string]models.MerchantMemory
}

func (m *memMemory) Get(_ context.Context, key string) (models.MerchantMemory, bool, error) {
	rec, ok := m.rows[key]
	return rec, ok, nil
}

func (m *memMemory) Upsert(_ context.Context, mem models.MerchantMemory) error {
	m.rows[mem.MerchantKey] = mem
	return nil
}

type memAccounts struct {
	accounts []models.Account
	alerts   []models.UnknownAccountAlert
}

func (m *memAccounts) List(_ context.Context) ([]models.Account, error) { return m.accounts, nil }
func (m *memAccounts) Save(_ context.Context, a models.Account) error {
	m.accounts = append(m.accounts, a)
	return nil
}
func (m *memAccounts) Delete(_ context.Context, key string) error { return nil }
func (m *memAccounts) RecordUnknownAccount(_ context.Context, alert models.UnknownAccountAlert) error {
	m.alerts = append(m.alerts, alert)
	return nil
}

type memBalances struct{ rows map[string]models.BalanceRecord }

func (m *memBalances) Get(_ context.Context, key string) (models.BalanceRecord, bool, error) {
	rec, ok := m.rows[key]
	return rec, ok, nil
}
func (m *memBalances) Save(_ context.Context, rec models.BalanceRecord) error {
	m.rows[rec.AccountKey] = rec
	return nil
}

type memBudgets struct{ rows map[string]models.BudgetRecord }

func (m *memBudgets) Get(_ context.Context, cat string) (models.BudgetRecord, bool, error) {
	rec, ok := m.rows[cat]
	return rec, ok, nil
}
func (m *memBudgets) Save(_ context.Context, rec models.BudgetRecord) error {
	m.rows[rec.Category] = rec
	return nil
}

type memDebts struct{ rows map[string]models.DebtIndexEntry }

func (m *memDebts) Get(_ context.Context, cp, ref string) (models.DebtIndexEntry, bool, error) {
	rec, ok := m.rows[cp+"|"+ref]
	return rec, ok, nil
}
func (m *memDebts) Save(_ context.Context, e models.DebtIndexEntry) error {
	m.rows[e.Counterparty+"|"+e.AccountRef] = e
	return nil
}

type memProcessed struct{ recs []models.ProcessedTransaction }

func (m *memProcessed) Record(_ context.Context, tx models.ProcessedTransaction) error {
	m.recs = append(m.recs, tx)
	return nil
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return n.err
}

type staticTemplates struct{ matcher *templates.Matcher }

func (s staticTemplates) Matcher() (*templates.Matcher, error) { return s.matcher, nil }

type stubEnricher struct {
	out map[string]interface{}
}

func (s stubEnricher) Enrich(_ context.Context, _ string, seed models.Transaction) models.Transaction {
	if s.out == nil {
		return seed
	}
	return extract.Sanitize(seed, s.out)
}

// --- fixture ---

type fixture struct {
	pipeline  *Pipeline
	accounts  *memAccounts
	memory    *memMemory
	balances  *memBalances
	budgets   *memBudgets
	debts     *memDebts
	processed *memProcessed
	notifier  *recordingNotifier
	logger    *logging.MockLogger
}

type fixtureOpt func(*fixtureConfig)

type fixtureConfig struct {
	rules     []models.ClassifierRule
	templates []templates.Rule
	enricher  Enricher
	accounts  []models.Account
	autoLearn bool
}

func withRules(rules ...models.ClassifierRule) fixtureOpt {
	return func(c *fixtureConfig) { c.rules = rules }
}

func withTemplates(rules ...templates.Rule) fixtureOpt {
	return func(c *fixtureConfig) { c.templates = rules }
}

func withEnricher(e Enricher) fixtureOpt {
	return func(c *fixtureConfig) { c.enricher = e }
}

func withAccounts(accs ...models.Account) fixtureOpt {
	return func(c *fixtureConfig) { c.accounts = accs }
}

func withAutoLearn() fixtureOpt {
	return func(c *fixtureConfig) { c.autoLearn = true }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.NewMockLogger()
	f := &fixture{
		accounts:  &memAccounts{accounts: cfg.accounts},
		memory:    &memMemory{rows: make(map[string]models.MerchantMemory)},
		balances:  &memBalances{rows: make(map[string]models.BalanceRecord)},
		budgets:   &memBudgets{rows: make(map[string]models.BudgetRecord)},
		debts:     &memDebts{rows: make(map[string]models.DebtIndexEntry)},
		processed: &memProcessed{},
		notifier:  &recordingNotifier{},
		logger:    logger,
	}

	gate := dedup.NewGate(&memDedupRepo{}, lock.NewMutex(), dedup.Options{}, logger)
	cls := classifier.New(classifier.StaticRules(cfg.rules), f.memory, logger)
	resolver := accounts.NewResolver(f.accounts, f.accounts, logger)
	updater := ledger.NewUpdater(f.balances, f.budgets, f.debts, 25, logger)
	tmpl := staticTemplates{matcher: templates.NewMatcher(cfg.templates, logger)}

	f.pipeline = New(gate, tmpl, cfg.enricher, cls, resolver, updater,
		f.processed, f.notifier, Options{AutoLearn: cfg.autoLearn}, logger)
	return f
}

const posMessage = "شراء POS بـ 7.75 SAR من Azoom AlShamal Co عبر MasterCard **0305 في 2026-01-19 07:26:07"

func TestProcessPOSMessage(t *testing.T) {
	f := newFixture(t)

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOK, out.Status)
	assert.Equal(t, "2026-01-19 07:26:07|0305|azoom alshamal", out.Fingerprint)
	assert.Equal(t, "Azoom AlShamal Co", out.Transaction.Merchant)
	assert.True(t, out.Transaction.Amount.Equal(decimal.RequireFromString("7.75")))
	assert.Equal(t, "SAR", out.Transaction.Currency)
	assert.Equal(t, models.CategoryGeneralPurchases, out.Transaction.Category)
	assert.False(t, out.Transaction.IsIncoming)

	// Balance decreased, history recorded, report sent.
	assert.True(t, f.balances.rows[out.AccountKey].Balance.Equal(decimal.RequireFromString("-7.75")))
	require.Len(t, f.processed.recs, 1)
	assert.Equal(t, out.Fingerprint, f.processed.recs[0].Fingerprint)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "7.75")
}

func TestProcessDuplicateSkipsSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg := models.RawMessage{Text: posMessage, Source: "sms"}

	first, err := f.pipeline.Process(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, first.Status)

	second, err := f.pipeline.Process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipDup, second.Status)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	// One balance mutation, one history row, one report.
	assert.True(t, f.balances.rows[first.AccountKey].Balance.Equal(decimal.RequireFromString("-7.75")))
	assert.Len(t, f.processed.recs, 1)
	assert.Len(t, f.notifier.messages, 1)
}

func TestProcessDebitMessageDefaults(t *testing.T) {
	f := newFixture(t)

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{
		Text:   "تم خصم 50 ريال من حسابك",
		Source: "sms",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOK, out.Status)
	assert.True(t, out.Transaction.Amount.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, "SAR", out.Transaction.Currency)
	assert.False(t, out.Transaction.IsIncoming)
	assert.Equal(t, models.MerchantUnspecified, out.Transaction.Merchant)
}

func TestTemplateOverridesHeuristic(t *testing.T) {
	f := newFixture(t, withTemplates(templates.Rule{
		Enabled:      true,
		Organization: "alrajhi",
		Pattern:      `Purchase of (\d+\.\d+) SAR at (\w+)`,
		Fields: map[templates.Field]int{
			templates.FieldAmount:   1,
			templates.FieldMerchant: 2,
		},
	}))

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{
		Text:   "Purchase of 99.50 SAR at Alhamad from OtherPlace",
		Source: "sms",
	})
	require.NoError(t, err)

	// The template's merchant wins over the heuristic's "from" capture.
	assert.Equal(t, "Alhamad", out.Transaction.Merchant)
	assert.True(t, out.Transaction.Amount.Equal(decimal.RequireFromString("99.50")))
}

func TestTemplateMatchSuppressesEnricher(t *testing.T) {
	enricher := stubEnricher{out: map[string]interface{}{"merchant": "AI Merchant"}}
	f := newFixture(t,
		withEnricher(enricher),
		withTemplates(templates.Rule{
			Enabled: true,
			Pattern: `Purchase of (\d+\.\d+) SAR at (\w+)`,
			Fields: map[templates.Field]int{
				templates.FieldAmount:   1,
				templates.FieldMerchant: 2,
			},
		}))

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{
		Text: "Purchase of 10.00 SAR at Bakery", Source: "sms",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bakery", out.Transaction.Merchant)
}

func TestNoProvidersNoTemplateEqualsHeuristicSeed(t *testing.T) {
	f := newFixture(t)
	text := "تم خصم 50 ريال من حسابك"

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: text, Source: "sms"})
	require.NoError(t, err)

	seed := extract.Heuristic(text)
	// The classifier leaves a fully-default debit untouched, so the final
	// transaction equals the heuristic seed.
	assert.Equal(t, seed, out.Transaction)
}

func TestMerchantMemoryStickiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A manual correction memorizes the merchant under its normalized key.
	cls := classifier.New(classifier.StaticRules(nil), f.memory, f.logger)
	require.NoError(t, cls.Learn(ctx, "AZOOM ALSHAMAL CO", models.CategoryBills, models.TypeBill))

	out, err := f.pipeline.Process(ctx, models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)

	// Memory overrides the heuristic's purchase category.
	assert.Equal(t, models.CategoryBills, out.Transaction.Category)
}

func TestAutoLearnWritesMerchantMemory(t *testing.T) {
	f := newFixture(t, withAutoLearn())

	_, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)

	mem, ok := f.memory.rows["azoom alshamal"]
	require.True(t, ok)
	assert.Equal(t, models.CategoryGeneralPurchases, mem.Category)
}

func TestClassifierRuleAssignsAccount(t *testing.T) {
	f := newFixture(t,
		withRules(models.ClassifierRule{
			MatchKey: "azoom",
			Category: models.CategoryBills,
		}),
		withAccounts(models.Account{Name: "Mada card", Number: "0305", IsMine: true}),
	)

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryBills, out.Transaction.Category)
	assert.Equal(t, "0305", out.AccountKey)
	assert.Empty(t, f.accounts.alerts)
}

func TestOpeningBalanceSeedsRunningBalance(t *testing.T) {
	f := newFixture(t, withAccounts(models.Account{
		Name:           "Mada card",
		Number:         "0305",
		IsMine:         true,
		OpeningBalance: decimal.RequireFromString("500"),
	}))

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)

	// opening 500 − 7.75
	want := decimal.RequireFromString("492.25")
	assert.True(t, out.Ledger.Balance.Balance.Equal(want),
		"balance %s, want %s", out.Ledger.Balance.Balance, want)
	assert.True(t, f.balances.rows["0305"].Balance.Equal(want))
}

func TestUnknownAccountRecordsAlert(t *testing.T) {
	f := newFixture(t, withAccounts(models.Account{Name: "Main", Number: "9999", IsMine: true}))

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, out.Status)

	require.Len(t, f.accounts.alerts, 1)
	assert.Equal(t, "0305", f.accounts.alerts[0].Identifier)
}

func TestInternalTransferFeedsDebtIndex(t *testing.T) {
	f := newFixture(t, withAccounts(models.Account{
		Name:       "Ahmad",
		Number:     "7001",
		IsInternal: true,
	}))

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{
		Text:   "حوالة صادرة بمبلغ 200 ريال الى حساب 7001",
		Source: "sms",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, out.Status)

	entry, ok := f.debts.rows["Ahmad|7001"]
	require.True(t, ok, "debt entry missing: %v", f.debts.rows)
	assert.True(t, entry.NetOwed.Equal(decimal.RequireFromString("200")))
}

func TestReportFailureDoesNotFailMessage(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")

	out, err := f.pipeline.Process(context.Background(), models.RawMessage{Text: posMessage, Source: "sms"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, out.Status)
	// Ledger write stands despite the failed send.
	assert.True(t, f.balances.rows[out.AccountKey].Balance.Equal(decimal.RequireFromString("-7.75")))
	assert.True(t, f.logger.HasMessage("Report delivery failed"))
}
