package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/dedup"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// DedupLog is the append-only fingerprint log backed by the dedup_log table.
type DedupLog struct {
	store *Store
}

var _ dedup.Repository = (*DedupLog)(nil)

// DedupLog returns the fingerprint log view of the store.
func (s *Store) DedupLog() *DedupLog {
	return &DedupLog{store: s}
}

// Recent returns up to limit records, most recently appended first.
func (d *DedupLog) Recent(ctx context.Context, limit int) ([]models.DedupRecord, error) {
	rows, err := d.store.db.QueryContext(ctx,
		`SELECT fingerprint, seen_at, status FROM dedup_log ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query dedup log: %w", err)
	}
	defer rows.Close()

	var out []models.DedupRecord
	for rows.Next() {
		var rec models.DedupRecord
		if err := rows.Scan(&rec.Fingerprint, &rec.SeenAt, &rec.Status); err != nil {
			return nil, fmt.Errorf("storage: scan dedup record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Append adds a record to the log.
func (d *DedupLog) Append(ctx context.Context, rec models.DedupRecord) error {
	_, err := d.store.db.ExecContext(ctx,
		`INSERT INTO dedup_log (fingerprint, seen_at, status) VALUES (?, ?, ?)`,
		rec.Fingerprint, rec.SeenAt, rec.Status)
	if err != nil {
		return fmt.Errorf("storage: append dedup record: %w", err)
	}
	return nil
}

// PruneBefore deletes records older than cutoff and reports how many went.
func (d *DedupLog) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := d.store.db.ExecContext(ctx,
		`DELETE FROM dedup_log WHERE seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage: prune dedup log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
