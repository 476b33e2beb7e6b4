// Package extract contains the always-available fallback extraction: a pure
// keyword/regex heuristic over normalized text, and the sanitize funnel every
// extraction path must pass through before classification.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/textnorm"
)

var (
	// amount adjacent to a currency token, either order
	amountBeforeCurrencyRe = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?)\s*(sar|sr|usd|eur|ريال|ر\.س|درهم|دولار|يورو)`)
	amountAfterMarkerRe    = regexp.MustCompile(`(?i)(?:بـ|مبلغ|قيمة|amount|بمبلغ)\s*:?\s*(\d{1,3}(?:,\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?)`)

	accountRe = regexp.MustCompile(`(?i)(?:حساب|رقم الحساب|account(?:\s+(?:no|number))?)[:\s*]*((?:\*+)?\d{3,20})`)
	cardRe    = regexp.MustCompile(`(?i)(?:بطاقة|مدى|card)\D{0,12}?((?:\*+|[xX]{2,})?\d{3,6})`)

	merchantFromRe = regexp.MustCompile(`(?:من|from)\s+(.+?)(?:\s+(?:عبر|في|لدى|via|at|on|through)\s|$)`)
	merchantToRe   = regexp.MustCompile(`(?:إلى|الى|لدى|to|at)\s+(.+?)(?:\s+(?:عبر|في|via|on|through)\s|$)`)
)

// Keyword classes for direction. Incoming wins when both classes match.
var (
	incomingKeywords = []string{
		"إيداع", "ايداع", "استلام", "اضافة", "إضافة", "وصل", "حوالة واردة", "راتب",
		"deposit", "received", "credited", "added", "incoming", "salary", "refund",
	}
	outgoingKeywords = []string{
		"خصم", "شراء", "سحب", "دفع", "رسوم", "تحويل الى", "حوالة صادرة",
		"debit", "purchase", "withdrawal", "withdraw", "fee", "payment", "pos", "transfer to",
	}
	transferKeywords = []string{
		"حوالة", "تحويل", "transfer", "iban",
	}
	purchaseKeywords = []string{
		"شراء", "نقاط البيع", "pos", "purchase", "متجر", "store", "mada", "مدى", "apple pay",
	}
	billKeywords = []string{
		"فاتورة", "سداد", "bill", "sadad", "invoice",
	}
)

var currencyTokens = map[string]string{
	"sar":  "SAR",
	"sr":   "SAR",
	"ريال": "SAR",
	"ر.س":  "SAR",
	"usd":  "USD",
	"دولار": "USD",
	"eur":  "EUR",
	"يورو": "EUR",
	"درهم": "AED",
}

// Heuristic extracts a transaction seed from raw text. It never fails and
// always yields the full canonical schema with safe defaults; every other
// classification stage merges over this result.
func Heuristic(raw string) models.Transaction {
	text := textnorm.Normalize(raw)
	lower := strings.ToLower(text)

	tx := models.Transaction{
		Merchant: models.MerchantUnspecified,
		Amount:   decimal.Zero,
		Currency: models.DefaultCurrency,
		Category: models.CategoryOther,
	}

	tx.Amount, tx.Currency = extractAmount(lower)
	// Incoming keywords take priority when both classes fire.
	tx.IsIncoming = containsAny(lower, incomingKeywords)

	if m := accountRe.FindStringSubmatch(text); m != nil {
		tx.AccNum = strings.TrimLeft(m[1], "*")
	}
	if m := cardRe.FindStringSubmatch(text); m != nil {
		tx.CardNum = strings.TrimLeft(m[1], "*xX")
	}

	if merchant := extractMerchant(text); merchant != "" {
		tx.Merchant = merchant
	}

	// Seed type/category from the keyword decision table.
	switch {
	case containsAny(lower, billKeywords):
		tx.Type = models.TypeBill
		tx.Category = models.CategoryBills
	case containsAny(lower, purchaseKeywords):
		tx.Type = models.TypePurchase
		tx.Category = models.CategoryGeneralPurchases
	case containsAny(lower, transferKeywords):
		tx.Type = models.TypeTransfer
	}

	// Direction keywords override the transfer category when they fire.
	if tx.Type == models.TypeTransfer {
		switch {
		case tx.IsIncoming:
			tx.Category = models.CategoryIncomingTransfers
		case containsAny(lower, outgoingKeywords):
			tx.Category = models.CategoryOutgoingTransfers
		}
	}

	return tx
}

func extractAmount(lower string) (decimal.Decimal, string) {
	if m := amountBeforeCurrencyRe.FindStringSubmatch(lower); m != nil {
		cur := models.DefaultCurrency
		if c, ok := currencyTokens[strings.TrimSpace(m[2])]; ok {
			cur = c
		}
		return models.ParseAmount(m[1]), cur
	}
	if m := amountAfterMarkerRe.FindStringSubmatch(lower); m != nil {
		return models.ParseAmount(m[1]), models.DefaultCurrency
	}
	return decimal.Zero, models.DefaultCurrency
}

func extractMerchant(text string) string {
	for _, re := range []*regexp.Regexp{merchantFromRe, merchantToRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		// "من حسابك" names the account, not a merchant.
		if isAccountPhrase(candidate) {
			continue
		}
		if candidate != "" {
			return truncateRunes(candidate, models.MaxMerchantLen)
		}
	}
	return ""
}

func isAccountPhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range []string{"حساب", "بطاق", "account", "card", "iban"} {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	return false
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}
