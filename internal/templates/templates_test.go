package templates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

func posRule() Rule {
	return Rule{
		Enabled:      true,
		Organization: "alrajhi",
		Pattern:      `شراء POS بـ ([\d.,]+) SAR من (.+?) عبر .*?\*+(\d{3,6}) في (\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2})`,
		Fields: map[Field]int{
			FieldAmount:   1,
			FieldMerchant: 2,
			FieldCard:     3,
			FieldDate:     4,
			FieldTime:     5,
		},
	}
}

func TestMatchFullTemplate(t *testing.T) {
	m := NewMatcher([]Rule{posRule()}, logging.NewMockLogger())
	require.Equal(t, 1, m.Len())

	res := m.Match("شراء POS بـ 7.75 SAR من Azoom AlShamal Co عبر MasterCard **0305 في 2026-01-19 07:26:07")
	require.True(t, res.OK)
	assert.Equal(t, "alrajhi", res.Organization)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("7.75")))
	assert.Equal(t, "Azoom AlShamal Co", res.Merchant)
	assert.Equal(t, "0305", res.Card)
	assert.Equal(t, "2026-01-19 07:26:07", res.DateTime)
}

func TestMatchNoRuleMatches(t *testing.T) {
	m := NewMatcher([]Rule{posRule()}, logging.NewMockLogger())
	res := m.Match("حوالة واردة بمبلغ 500 ريال")
	assert.False(t, res.OK)
}

func TestMatchFirstEnabledWins(t *testing.T) {
	first := Rule{
		Enabled: true, Organization: "first",
		Pattern: `amount (\d+)`,
		Fields:  map[Field]int{FieldAmount: 1},
	}
	second := Rule{
		Enabled: true, Organization: "second",
		Pattern: `amount (\d+)`,
		Fields:  map[Field]int{FieldAmount: 1},
	}
	m := NewMatcher([]Rule{first, second}, logging.NewMockLogger())

	res := m.Match("amount 42")
	require.True(t, res.OK)
	assert.Equal(t, "first", res.Organization)
}

func TestMatchSkipsDisabledRules(t *testing.T) {
	disabled := posRule()
	disabled.Enabled = false
	fallback := Rule{
		Enabled: true, Organization: "generic",
		Pattern: `([\d.]+) SAR`,
		Fields:  map[Field]int{FieldAmount: 1},
	}
	m := NewMatcher([]Rule{disabled, fallback}, logging.NewMockLogger())

	res := m.Match("شراء POS بـ 7.75 SAR من Azoom عبر MasterCard **0305 في 2026-01-19 07:26:07")
	require.True(t, res.OK)
	assert.Equal(t, "generic", res.Organization)
}

func TestNewMatcherSkipsInvalidRules(t *testing.T) {
	logger := logging.NewMockLogger()
	rules := []Rule{
		{Enabled: true, Organization: "bad-regex", Pattern: `([unclosed`, Fields: map[Field]int{FieldAmount: 1}},
		{Enabled: true, Organization: "bad-field", Pattern: `(\d+)`, Fields: map[Field]int{"total": 1}},
		{Enabled: true, Organization: "missing-group", Pattern: `(\d+)`, Fields: map[Field]int{FieldAmount: 2}},
		{Enabled: true, Organization: "no-fields", Pattern: `(\d+)`, Fields: nil},
		{Enabled: true, Organization: "good", Pattern: `(\d+)`, Fields: map[Field]int{FieldAmount: 1}},
	}
	m := NewMatcher(rules, logger)

	assert.Equal(t, 1, m.Len())
	res := m.Match("pay 10 now")
	require.True(t, res.OK)
	assert.Equal(t, "good", res.Organization)
	assert.True(t, logger.HasMessage("Skipping template rule with malformed regex"))
	assert.True(t, logger.HasMessage("Skipping template rule with invalid field map"))
	assert.True(t, logger.HasMessage("Skipping template rule: field map references missing capture group"))
}

func TestMatchAmountWithThousandsSeparator(t *testing.T) {
	rule := Rule{
		Enabled: true,
		Pattern: `amount ([\d.,]+)`,
		Fields:  map[Field]int{FieldAmount: 1},
	}
	m := NewMatcher([]Rule{rule}, logging.NewMockLogger())

	res := m.Match("amount 1,234.56")
	require.True(t, res.OK)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("1234.56")))
}

func TestJoinDateTime(t *testing.T) {
	assert.Equal(t, "2026-01-19 07:26", joinDateTime("2026/01/19", "07:26"))
	assert.Equal(t, "2026-01-19", joinDateTime("2026-01-19", ""))
	assert.Equal(t, "07:26", joinDateTime("", "07:26"))
	assert.Equal(t, "", joinDateTime("", ""))
}
