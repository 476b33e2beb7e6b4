// Package templates implements the organization-specific extraction rules:
// an ordered list of (enabled, organization, regex, field map) rows where the
// first full match wins. Template extraction runs before the heuristic
// fallback and its fields are authoritative.
package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Field names a capture-group mapping target.
type Field string

const (
	FieldAmount   Field = "amount"
	FieldMerchant Field = "merchant"
	FieldCard     Field = "card"
	FieldDate     Field = "date"
	FieldTime     Field = "time"
)

var validFields = map[Field]bool{
	FieldAmount:   true,
	FieldMerchant: true,
	FieldCard:     true,
	FieldDate:     true,
	FieldTime:     true,
}

// Rule is one stored template row.
type Rule struct {
	Enabled      bool          `yaml:"enabled"`
	Organization string        `yaml:"organization"`
	Pattern      string        `yaml:"pattern"`
	Fields       map[Field]int `yaml:"fields"`
}

// compiledRule pairs a stored rule with its compiled regex.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Result is the outcome of a template match. OK is false when no enabled
// rule matched and the caller should defer to the heuristic extractor.
type Result struct {
	OK           bool
	Organization string
	Amount       decimal.Decimal
	Merchant     string
	Card         string
	DateTime     string
}

// Matcher holds a compiled, validated rule set.
type Matcher struct {
	rules  []compiledRule
	logger logging.Logger
}

// NewMatcher compiles the rule list in order. A rule with a malformed regex
// or an invalid field map is skipped with a warning; one bad stored row must
// never disable the whole matcher.
func NewMatcher(rules []Rule, logger logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.GetLogger()
	}
	m := &Matcher{logger: logger}

	for i, r := range rules {
		if err := validateFieldMap(r.Fields); err != nil {
			logger.WithError(err).WithField(logging.FieldRule, ruleLabel(i, r)).
				Warn("Skipping template rule with invalid field map")
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logger.WithError(err).WithField(logging.FieldRule, ruleLabel(i, r)).
				Warn("Skipping template rule with malformed regex")
			continue
		}
		if maxGroup(r.Fields) > re.NumSubexp() {
			logger.WithField(logging.FieldRule, ruleLabel(i, r)).
				Warn("Skipping template rule: field map references missing capture group")
			continue
		}
		m.rules = append(m.rules, compiledRule{Rule: r, re: re})
	}

	return m
}

func ruleLabel(i int, r Rule) string {
	return fmt.Sprintf("%d/%s", i, r.Organization)
}

func validateFieldMap(fields map[Field]int) error {
	if len(fields) == 0 {
		return fmt.Errorf("empty field map")
	}
	for f, idx := range fields {
		if !validFields[f] {
			return fmt.Errorf("unknown field %q", f)
		}
		if idx < 1 {
			return fmt.Errorf("field %q: capture group index %d out of range", f, idx)
		}
	}
	return nil
}

func maxGroup(fields map[Field]int) int {
	max := 0
	for _, idx := range fields {
		if idx > max {
			max = idx
		}
	}
	return max
}

// Len reports how many rules survived compilation.
func (m *Matcher) Len() int { return len(m.rules) }

// Match tries each enabled rule in order against the normalized text and
// returns on the first full match.
func (m *Matcher) Match(text string) Result {
	for _, r := range m.rules {
		if !r.Enabled {
			continue
		}
		groups := r.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}

		res := Result{OK: true, Organization: r.Organization}
		var date, clock string
		for field, idx := range r.Fields {
			if idx >= len(groups) {
				continue
			}
			val := strings.TrimSpace(groups[idx])
			switch field {
			case FieldAmount:
				res.Amount = models.ParseAmount(val)
			case FieldMerchant:
				res.Merchant = val
			case FieldCard:
				res.Card = val
			case FieldDate:
				date = val
			case FieldTime:
				clock = val
			}
		}
		res.DateTime = joinDateTime(date, clock)
		return res
	}
	return Result{}
}

// joinDateTime concatenates date and time parts into one normalized
// timestamp string, converting slashes to hyphens.
func joinDateTime(date, clock string) string {
	date = strings.ReplaceAll(date, "/", "-")
	switch {
	case date != "" && clock != "":
		return date + " " + clock
	case date != "":
		return date
	default:
		return clock
	}
}
