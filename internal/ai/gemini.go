package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// GeminiProvider classifies notification text with the Google Gemini API.
type GeminiProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  logging.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a Gemini-backed provider. The client is created
// lazily on first use so an unconfigured provider costs nothing.
func NewGeminiProvider(apiKey, model string, timeout time.Duration, logger logging.Logger) *GeminiProvider {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the provider in logs.
func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %s", redact(err.Error(), p.apiKey))
	}
	p.client = client
	return client, nil
}

// Classify sends the raw text with the shared JSON instructions and decodes
// the first JSON object in the reply.
func (p *GeminiProvider) Classify(ctx context.Context, text string) (map[string]interface{}, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := client.GenerativeModel(p.model)
	resp, err := model.GenerateContent(ctx, genai.Text(classifyPrompt+text))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %s", redact(err.Error(), p.apiKey))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: empty response")
	}

	var reply string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			reply += string(t)
		}
	}

	return decodeObject(reply)
}
