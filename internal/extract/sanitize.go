package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Sanitize merges a candidate override (typically decoded provider JSON)
// over a seed transaction and coerces the result to the canonical schema.
// This is the single funnel for every extraction path: whatever garbage the
// candidate carries, the output always has every field present, typed and
// within bounds.
func Sanitize(seed models.Transaction, candidate map[string]interface{}) models.Transaction {
	tx := seed

	for key, val := range candidate {
		switch normalizeKey(key) {
		case "merchant":
			if s := coerceString(val); s != "" {
				tx.Merchant = s
			}
		case "amount":
			if d, ok := coerceAmount(val); ok {
				tx.Amount = d
			}
		case "currency":
			if s := coerceString(val); s != "" {
				tx.Currency = strings.ToUpper(s)
			}
		case "category":
			if s := coerceString(val); s != "" {
				tx.Category = s
			}
		case "type":
			if s := coerceString(val); s != "" {
				tx.Type = s
			}
		case "isincoming":
			if b, ok := coerceBool(val); ok {
				tx.IsIncoming = b
			}
		case "accnum":
			if s := coerceString(val); s != "" {
				tx.AccNum = s
			}
		case "cardnum":
			if s := coerceString(val); s != "" {
				tx.CardNum = s
			}
		}
	}

	return clamp(tx)
}

// clamp enforces defaults and length caps on a transaction regardless of
// where it came from.
func clamp(tx models.Transaction) models.Transaction {
	tx.Merchant = truncateRunes(strings.TrimSpace(tx.Merchant), models.MaxMerchantLen)
	if tx.Merchant == "" {
		tx.Merchant = models.MerchantUnspecified
	}
	tx.Category = truncateRunes(strings.TrimSpace(tx.Category), models.MaxCategoryLen)
	if tx.Category == "" {
		tx.Category = models.CategoryOther
	}
	tx.Type = truncateRunes(strings.TrimSpace(tx.Type), models.MaxTypeLen)
	tx.Currency = strings.TrimSpace(tx.Currency)
	if tx.Currency == "" {
		tx.Currency = models.DefaultCurrency
	}
	tx.AccNum = truncateRunes(strings.TrimSpace(tx.AccNum), models.MaxAccountLen)
	tx.CardNum = truncateRunes(strings.TrimSpace(tx.CardNum), models.MaxAccountLen)
	if tx.Amount.IsNegative() {
		tx.Amount = tx.Amount.Abs()
	}
	return tx
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

func coerceString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func coerceAmount(val interface{}) (decimal.Decimal, bool) {
	switch v := val.(type) {
	case float64:
		d := models.ParseAmountFloat(v)
		return d, true
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, false
		}
		return models.ParseAmount(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	default:
		return decimal.Zero, false
	}
}

func coerceBool(val interface{}) (bool, bool) {
	switch v := val.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return false, false
		}
		return b, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}
