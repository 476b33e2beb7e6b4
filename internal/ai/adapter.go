// Package ai enriches the heuristic seed with structured output from
// external text-classification providers. Providers are tried in priority
// order and every failure falls through; with zero configured providers the
// pipeline still produces a valid transaction from the heuristic seed alone.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shafi-prog/money-tracker-sub001/internal/extract"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Provider is one text-classification backend. Classify returns the decoded
// JSON object the provider produced for the raw text.
type Provider interface {
	Name() string
	Classify(ctx context.Context, text string) (map[string]interface{}, error)
}

// Adapter runs the ordered provider chain and merges the first reachable
// provider's output over the heuristic seed via the sanitize funnel.
type Adapter struct {
	providers []Provider
	logger    logging.Logger
}

// NewAdapter creates an adapter over the given providers, tried in order.
func NewAdapter(providers []Provider, logger logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Adapter{providers: providers, logger: logger}
}

// Enrich attempts each provider in order. On success the provider output is
// sanitized over the seed; when all providers fail (or none are configured)
// the seed is returned unchanged.
func (a *Adapter) Enrich(ctx context.Context, raw string, seed models.Transaction) models.Transaction {
	for _, p := range a.providers {
		out, err := p.Classify(ctx, raw)
		if err != nil {
			// Provider errors must never leak credentials; each
			// provider redacts before returning.
			a.logger.WithError(err).WithField(logging.FieldProvider, p.Name()).
				Warn("Classification provider failed, falling through")
			continue
		}
		a.logger.WithField(logging.FieldProvider, p.Name()).Debug("Provider classification merged")
		return extract.Sanitize(seed, out)
	}
	return seed
}

// classifyPrompt is the shared instruction block sent to every provider.
const classifyPrompt = `You classify bank notification messages (Arabic or English).
Reply with ONLY one JSON object, no prose and no code fences, with exactly these keys:
{"merchant": string, "amount": number, "currency": string, "category": string,
 "type": string, "isIncoming": boolean, "accNum": string, "cardNum": string}
Use "" for unknown strings and 0 for unknown amounts.

Message:
`

// decodeObject extracts and decodes the first balanced JSON object from a
// provider response. Models wrap output in code fences or prose despite
// instructions, so the object is located by bracket matching.
func decodeObject(raw string) (map[string]interface{}, error) {
	jsonText := firstJSONObject(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(jsonText), &out); err != nil {
		return nil, fmt.Errorf("decode provider JSON: %w", err)
	}
	return out, nil
}

// firstJSONObject returns the first balanced {...} span in s, respecting
// string literals and escapes.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// redact removes secret material from an error message before it can reach
// a log line.
func redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, "[REDACTED]")
	}
	return msg
}
