package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Queue persists ingested messages awaiting batch processing.
type Queue struct {
	store *Store
}

// Queue returns the message-queue view of the store.
func (s *Store) Queue() *Queue {
	return &Queue{store: s}
}

// Enqueue stores a raw message as a NEW queue item and returns it.
func (q *Queue) Enqueue(ctx context.Context, msg models.RawMessage) (models.QueueItem, error) {
	item := models.QueueItem{
		ID:         uuid.NewString(),
		ReceivedAt: msg.ReceivedAt,
		Source:     msg.Source,
		Text:       msg.Text,
		MetaJSON:   msg.RoutingMeta,
		Status:     models.StatusNew,
	}
	if item.ReceivedAt.IsZero() {
		item.ReceivedAt = time.Now()
	}
	_, err := q.store.db.ExecContext(ctx,
		`INSERT INTO queue_items (id, received_at, source, text, meta_json, status, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?, '')`,
		item.ID, item.ReceivedAt, item.Source, item.Text, item.MetaJSON, item.Status)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("storage: enqueue message: %w", err)
	}
	return item, nil
}

// FetchNew returns up to limit NEW items, oldest first.
func (q *Queue) FetchNew(ctx context.Context, limit int) ([]models.QueueItem, error) {
	rows, err := q.store.db.QueryContext(ctx,
		`SELECT id, received_at, source, text, meta_json, status, fingerprint
		 FROM queue_items WHERE status = ? ORDER BY received_at ASC LIMIT ?`,
		models.StatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch queue items: %w", err)
	}
	defer rows.Close()

	var out []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		if err := rows.Scan(&item.ID, &item.ReceivedAt, &item.Source, &item.Text, &item.MetaJSON, &item.Status, &item.Fingerprint); err != nil {
			return nil, fmt.Errorf("storage: scan queue item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpdateStatus records a status transition, optionally stamping the
// fingerprint once known. Empty fingerprint leaves the stored value alone.
func (q *Queue) UpdateStatus(ctx context.Context, id, status, fingerprint string) error {
	var err error
	if fingerprint != "" {
		_, err = q.store.db.ExecContext(ctx,
			`UPDATE queue_items SET status = ?, fingerprint = ? WHERE id = ?`, status, fingerprint, id)
	} else {
		_, err = q.store.db.ExecContext(ctx,
			`UPDATE queue_items SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("storage: update queue status: %w", err)
	}
	return nil
}

// Get fetches one queue item by id.
func (q *Queue) Get(ctx context.Context, id string) (models.QueueItem, bool, error) {
	var item models.QueueItem
	err := q.store.db.QueryRowContext(ctx,
		`SELECT id, received_at, source, text, meta_json, status, fingerprint
		 FROM queue_items WHERE id = ?`, id).
		Scan(&item.ID, &item.ReceivedAt, &item.Source, &item.Text, &item.MetaJSON, &item.Status, &item.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueueItem{}, false, nil
	}
	if err != nil {
		return models.QueueItem{}, false, fmt.Errorf("storage: get queue item: %w", err)
	}
	return item, true, nil
}

// CountByStatus returns how many items sit in each status.
func (q *Queue) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := q.store.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("storage: count queue items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("storage: scan queue count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
