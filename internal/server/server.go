// Package server exposes the ingestion HTTP surface: a webhook that enqueues
// raw notifications and returns immediately, plus a health probe. Heavy work
// happens later in the batch worker, never on the request path.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// maxBodySize bounds an ingest request body. Bank notifications are short;
// anything larger is garbage.
const maxBodySize = 64 * 1024

// Enqueuer accepts a raw message into the durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg models.RawMessage) (models.QueueItem, error)
}

// Server is the ingestion HTTP server.
type Server struct {
	queue  Enqueuer
	mux    *http.ServeMux
	logger logging.Logger
}

// New creates a server around the queue.
func New(queue Enqueuer, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	s := &Server{
		queue:  queue,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ingest", s.handleIngest)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type ingestRequest struct {
	Text   string          `json:"text"`
	Source string          `json:"source"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

type ingestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleIngest enqueues the message and answers 202. It never waits for
// processing.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = "webhook"
	}

	item, err := s.queue.Enqueue(r.Context(), models.RawMessage{
		Text:        req.Text,
		Source:      req.Source,
		ReceivedAt:  time.Now(),
		RoutingMeta: string(req.Meta),
	})
	if err != nil {
		s.logger.WithError(err).Error("Enqueue failed")
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldItemID, Value: item.ID},
		logging.Field{Key: logging.FieldSource, Value: req.Source},
	).Info("Message enqueued")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ingestResponse{ID: item.ID, Status: item.Status})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
