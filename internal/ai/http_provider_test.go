package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

func completionHandler(t *testing.T, reply string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "raw message text")

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: reply}})
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestHTTPProviderClassify(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "```json\n{\"merchant\":\"Azoom\",\"amount\":7.75}\n```"))
	defer srv.Close()

	p := NewHTTPProvider("openai", srv.URL, "test-api-key", "test-model", time.Second, logging.NewMockLogger())
	out, err := p.Classify(context.Background(), "raw message text")
	require.NoError(t, err)
	assert.Equal(t, "Azoom", out["merchant"])
	assert.Equal(t, 7.75, out["amount"])
}

func TestHTTPProviderUnconfigured(t *testing.T) {
	p := NewHTTPProvider("openai", "", "", "m", time.Second, logging.NewMockLogger())
	_, err := p.Classify(context.Background(), "msg")
	assert.ErrorContains(t, err, "not configured")
}

func TestHTTPProviderStatusErrorRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		// Some backends echo the credential back in error bodies.
		_, _ = w.Write([]byte(`{"error":"invalid key test-api-key"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider("openai", srv.URL, "test-api-key", "m", time.Second, logging.NewMockLogger())
	_, err := p.Classify(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.NotContains(t, err.Error(), "test-api-key")
}

func TestHTTPProviderTransportErrorRedacted(t *testing.T) {
	p := NewHTTPProvider("openai", "http://127.0.0.1:1", "test-api-key", "m", 200*time.Millisecond, logging.NewMockLogger())
	_, err := p.Classify(context.Background(), "msg")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-api-key")
}

func TestHTTPProviderEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider("openai", srv.URL, "test-api-key", "m", time.Second, logging.NewMockLogger())
	_, err := p.Classify(context.Background(), "msg")
	assert.ErrorContains(t, err, "empty completion")
}

func TestHTTPProviderNonJSONCompletion(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "I cannot classify that."))
	defer srv.Close()

	p := NewHTTPProvider("openai", srv.URL, "test-api-key", "test-model", time.Second, logging.NewMockLogger())
	_, err := p.Classify(context.Background(), "raw message text")
	assert.ErrorContains(t, err, "no JSON object")
}

func TestGeminiProviderRequiresKey(t *testing.T) {
	p := NewGeminiProvider("", "", time.Second, logging.NewMockLogger())
	assert.Equal(t, "gemini", p.Name())

	_, err := p.Classify(context.Background(), "msg")
	assert.ErrorContains(t, err, "API key not configured")
}
