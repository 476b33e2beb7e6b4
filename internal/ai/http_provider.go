package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// HTTPProvider classifies text against an OpenAI-compatible chat-completions
// endpoint. It covers the self-hosted and aggregator backends that expose
// that wire format.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPProvider creates a chat-completions provider. name is the label
// used in logs and config.
func NewHTTPProvider(name, baseURL, apiKey, model string, timeout time.Duration, logger logging.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name identifies the provider in logs.
func (p *HTTPProvider) Name() string { return p.name }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify posts the classification prompt and decodes the first JSON
// object from the completion.
func (p *HTTPProvider) Classify(ctx context.Context, text string) (map[string]interface{}, error) {
	if p.baseURL == "" || p.apiKey == "" {
		return nil, fmt.Errorf("%s: not configured", p.name)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: classifyPrompt + text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %s", p.name, redact(err.Error(), p.apiKey))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %s", p.name, redact(err.Error(), p.apiKey))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.WithError(closeErr).Debug("Failed to close provider response body")
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode,
			redact(truncate(string(payload), 200), p.apiKey))
	}

	var cr chatResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty completion", p.name)
	}

	return decodeObject(cr.Choices[0].Message.Content)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
