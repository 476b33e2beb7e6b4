// Package fingerprint derives a stable identity key from raw notification
// text for duplicate detection. The key is built from the transaction
// timestamp, the masked card's last digits and the normalized merchant, and
// is deliberately independent of the amount: banks resend the same
// notification with reformatted boilerplate, but those three parts identify
// the underlying transaction.
package fingerprint

import (
	"regexp"
	"strings"

	"github.com/Shafi-prog/money-tracker-sub001/internal/textnorm"
)

// Sentinels used when a part cannot be extracted. A fingerprint is always
// computable; missing parts degrade instead of failing.
const (
	SentinelUpper = "NA"
	SentinelLower = "na"
)

var (
	// combined "2026-01-19 07:26:07" style date+time
	dateTimeRe = regexp.MustCompile(`(\d{4}[-/]\d{1,2}[-/]\d{1,2})[ T](\d{1,2}:\d{2}(?::\d{2})?)`)
	dateRe     = regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`)
	timeRe     = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`)

	// 3-6 digits following a masking marker, e.g. "**0305" or "xx1234"
	cardRe = regexp.MustCompile(`(?:\*+|[xX]{2,})\s?(\d{3,6})`)

	// merchant phrase after a "from" preposition, stopping at a "via"/"at"
	// connector or end of string
	merchantRe = regexp.MustCompile(`(?:من|from|لدى)\s+(.+?)(?:\s+(?:عبر|في|لدى|via|at|on|through)\s|$)`)
)

// Fingerprint is the derived identity of one notification.
type Fingerprint struct {
	DateTime string
	CardLast string
	Merchant string
}

// Build extracts a fingerprint from raw text. Identical raw text (modulo
// whitespace) always yields the same fingerprint.
func Build(raw string) Fingerprint {
	text := textnorm.Normalize(raw)

	fp := Fingerprint{
		DateTime: SentinelUpper,
		CardLast: SentinelUpper,
		Merchant: SentinelLower,
	}

	if m := dateTimeRe.FindStringSubmatch(text); m != nil {
		fp.DateTime = m[1] + " " + m[2]
	} else {
		date := dateRe.FindString(text)
		clock := timeRe.FindString(text)
		switch {
		case date != "" && clock != "":
			fp.DateTime = date + " " + clock
		case date != "":
			fp.DateTime = date
		case clock != "":
			fp.DateTime = clock
		}
	}
	fp.DateTime = strings.ReplaceAll(fp.DateTime, "/", "-")

	if m := cardRe.FindStringSubmatch(text); m != nil {
		fp.CardLast = m[1]
	}

	if m := merchantRe.FindStringSubmatch(text); m != nil {
		if merchant := textnorm.NormalizeMerchant(m[1]); merchant != "" {
			fp.Merchant = merchant
		}
	}

	return fp
}

// String serializes the fingerprint as the pipe-joined lowercase key stored
// in the dedup log.
func (f Fingerprint) String() string {
	return strings.ToLower(f.DateTime + "|" + f.CardLast + "|" + f.Merchant)
}
