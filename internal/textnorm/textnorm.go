// Package textnorm normalizes raw bank-notification text before extraction.
// Bank SMS arrive with bidirectional control marks, Arabic-Indic digits and
// inconsistent whitespace; every other component assumes this package ran
// first.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// bidi and zero-width marks commonly injected by SMS gateways.
var strippedMarks = map[rune]bool{
	'​': true, // zero width space
	'‌': true, // zero width non-joiner
	'‍': true, // zero width joiner
	'‎': true, // left-to-right mark
	'‏': true, // right-to-left mark
	'‪': true, // LTR embedding
	'‫': true, // RTL embedding
	'‬': true, // pop directional formatting
	'‭': true, // LTR override
	'‮': true, // RTL override
	'⁦': true, // LTR isolate
	'⁧': true, // RTL isolate
	'⁨': true, // first strong isolate
	'⁩': true, // pop directional isolate
	'\uFEFF': true, // BOM
}

// corporate suffixes dropped from merchant names so "Azoom Co" and "Azoom"
// normalize identically.
var merchantStoplist = map[string]bool{
	"co":      true,
	"company": true,
	"ltd":     true,
	"llc":     true,
	"inc":     true,
	"est":     true,
	"sa":      true,
	"ksa":     true,
}

var lowerCaser = cases.Lower(language.Und)

// Normalize strips direction/control marks, converts Arabic-Indic digits and
// punctuation to their ASCII forms, collapses whitespace runs and trims.
// Empty input yields empty output; Normalize never fails.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strippedMarks[r] {
			continue
		}
		b.WriteRune(normalizeRune(r))
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeRune(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩': // Arabic-Indic digits U+0660..U+0669
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹': // Extended Arabic-Indic digits U+06F0..U+06F9
		return '0' + (r - '۰')
	}
	switch r {
	case '٫': // Arabic decimal separator
		return '.'
	case '٬': // Arabic thousands separator
		return ','
	case '،': // Arabic comma
		return ','
	case '؍': // Arabic date separator
		return '/'
	}
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// NormalizeMerchant produces the canonical merchant key used by the
// fingerprint and merchant memory: normalized, lowercased, letters and digits
// only (source script preserved), corporate suffixes removed, capped at 100
// runes.
func NormalizeMerchant(s string) string {
	s = lowerCaser.String(Normalize(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if merchantStoplist[w] {
			continue
		}
		kept = append(kept, w)
	}

	out := strings.Join(kept, " ")
	runes := []rune(out)
	if len(runes) > 100 {
		out = string(runes[:100])
	}
	return out
}
