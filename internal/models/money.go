package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleanRe = regexp.MustCompile(`[^\d.\-]`)

// ParseAmount parses a human-formatted amount string into a decimal.
// Thousands separators, currency symbols and surrounding text are stripped.
// Unparsable input yields zero; an amount is never allowed to fail the
// pipeline.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	// "1,234.56" → "1234.56". A comma acting as decimal separator
	// ("12,5") is converted rather than dropped.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) != 3 {
			s = parts[0] + "." + parts[1]
		}
	}
	s = amountCleanRe.ReplaceAllString(s, "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountFloat is ParseAmount for callers handing over a float, guarding
// against NaN/Inf from JSON-decoded provider output.
func ParseAmountFloat(f float64) decimal.Decimal {
	if f != f || f > 1e15 || f < -1e15 { // NaN or absurd
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
