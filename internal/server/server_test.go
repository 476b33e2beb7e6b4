package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

type stubQueue struct {
	enqueued []models.RawMessage
	err      error
}

func (q *stubQueue) Enqueue(_ context.Context, msg models.RawMessage) (models.QueueItem, error) {
	if q.err != nil {
		return models.QueueItem{}, q.err
	}
	q.enqueued = append(q.enqueued, msg)
	return models.QueueItem{ID: "item-1", Status: models.StatusNew}, nil
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIngestAcceptsMessage(t *testing.T) {
	queue := &stubQueue{}
	s := New(queue, logging.NewMockLogger())

	rec := doRequest(t, s, http.MethodPost, "/ingest",
		`{"text":"تم خصم 50 ريال من حسابك","source":"sms","meta":{"chat":"1"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "item-1")
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "تم خصم 50 ريال من حسابك", queue.enqueued[0].Text)
	assert.Equal(t, "sms", queue.enqueued[0].Source)
	assert.JSONEq(t, `{"chat":"1"}`, queue.enqueued[0].RoutingMeta)
	assert.False(t, queue.enqueued[0].ReceivedAt.IsZero())
}

func TestIngestDefaultsSource(t *testing.T) {
	queue := &stubQueue{}
	s := New(queue, logging.NewMockLogger())

	rec := doRequest(t, s, http.MethodPost, "/ingest", `{"text":"hello"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "webhook", queue.enqueued[0].Source)
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
	}{
		{name: "wrong method", method: http.MethodGet, body: "", wantCode: http.StatusMethodNotAllowed},
		{name: "invalid json", method: http.MethodPost, body: "{", wantCode: http.StatusBadRequest},
		{name: "missing text", method: http.MethodPost, body: `{"source":"sms"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &stubQueue{}
			s := New(queue, logging.NewMockLogger())
			rec := doRequest(t, s, tt.method, "/ingest", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, queue.enqueued)
		})
	}
}

func TestIngestEnqueueFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("disk full")}
	s := New(queue, logging.NewMockLogger())

	rec := doRequest(t, s, http.MethodPost, "/ingest", `{"text":"msg"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	s := New(&stubQueue{}, logging.NewMockLogger())
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
