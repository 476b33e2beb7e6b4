package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

func TestHeuristicPOSPurchase(t *testing.T) {
	tx := Heuristic("شراء POS بـ 7.75 SAR من Azoom AlShamal Co عبر MasterCard **0305 في 2026-01-19 07:26:07")

	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("7.75")))
	assert.Equal(t, "SAR", tx.Currency)
	assert.Equal(t, "Azoom AlShamal Co", tx.Merchant)
	assert.Equal(t, "0305", tx.CardNum)
	assert.Equal(t, models.TypePurchase, tx.Type)
	assert.Equal(t, models.CategoryGeneralPurchases, tx.Category)
	assert.False(t, tx.IsIncoming)
}

func TestHeuristicDebitWithAccountPhrase(t *testing.T) {
	tx := Heuristic("تم خصم 50 ريال من حسابك")

	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "SAR", tx.Currency)
	// "من حسابك" names the payer account, never a merchant.
	assert.Equal(t, models.MerchantUnspecified, tx.Merchant)
	assert.False(t, tx.IsIncoming)
	assert.Equal(t, models.CategoryOther, tx.Category)
}

func TestHeuristicIncomingTransfer(t *testing.T) {
	tx := Heuristic("حوالة واردة بمبلغ 500 ريال من Ahmad")

	assert.True(t, tx.IsIncoming)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, models.TypeTransfer, tx.Type)
	assert.Equal(t, models.CategoryIncomingTransfers, tx.Category)
	assert.Equal(t, "Ahmad", tx.Merchant)
}

func TestHeuristicOutgoingTransferToAccount(t *testing.T) {
	tx := Heuristic("حوالة صادرة بمبلغ 200 ريال الى حساب 7001")

	assert.False(t, tx.IsIncoming)
	assert.Equal(t, models.TypeTransfer, tx.Type)
	assert.Equal(t, models.CategoryOutgoingTransfers, tx.Category)
	assert.Equal(t, "7001", tx.AccNum)
	assert.Equal(t, models.MerchantUnspecified, tx.Merchant)
}

func TestHeuristicBillPayment(t *testing.T) {
	tx := Heuristic("سداد فاتورة الكهرباء بمبلغ 430 ريال")

	assert.Equal(t, models.TypeBill, tx.Type)
	assert.Equal(t, models.CategoryBills, tx.Category)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(430)))
}

func TestHeuristicArabicIndicDigits(t *testing.T) {
	tx := Heuristic("تم خصم ٥٠ ريال من حسابك")
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))
}

func TestHeuristicAmountVariants(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   string
		currency string
	}{
		{"thousands separator", "إيداع 1,234.56 ريال في حسابك", "1234.56", "SAR"},
		{"usd token", "purchase of 20 USD from Amazon via card", "20", "USD"},
		{"sr alias", "debit card xx1234 purchase 15 SR at Starbucks", "15", "SAR"},
		{"marker without currency", "سحب مبلغ 300", "300", "SAR"},
		{"no amount", "رسالة ترحيبية من البنك", "0", "SAR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := Heuristic(tc.text)
			assert.True(t, tx.Amount.Equal(decimal.RequireFromString(tc.amount)),
				"amount %s != %s", tx.Amount, tc.amount)
			assert.Equal(t, tc.currency, tx.Currency)
		})
	}
}

func TestHeuristicDirectionKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		incoming bool
	}{
		{"arabic deposit", "إيداع راتب في حسابك", true},
		{"english credited", "Your account was credited with 100 SAR", true},
		{"refund beats purchase wording", "refund for purchase of 30 SAR", true},
		{"arabic withdraw", "سحب نقدي 200 ريال", false},
		{"english fee", "fee of 5 SAR charged", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.incoming, Heuristic(tc.text).IsIncoming)
		})
	}
}

func TestHeuristicCardMaskVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		card string
	}{
		{"star mask", "شراء عبر بطاقة **0305", "0305"},
		{"x mask", "debit card xx1234 purchase", "1234"},
		{"mada card", "شراء مدى 4421 لدى متجر كذا", "4421"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.card, Heuristic(tc.text).CardNum)
		})
	}
}

func TestHeuristicNeverFails(t *testing.T) {
	for _, raw := range []string{"", "   ", "!!!", "مرحبا"} {
		tx := Heuristic(raw)
		require.Equal(t, models.MerchantUnspecified, tx.Merchant)
		require.Equal(t, models.CategoryOther, tx.Category)
		require.True(t, tx.Amount.IsZero())
		require.Equal(t, models.DefaultCurrency, tx.Currency)
	}
}
