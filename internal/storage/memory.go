package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shafi-prog/money-tracker-sub001/internal/classifier"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// MerchantMemoryRepo persists learned merchant categories.
type MerchantMemoryRepo struct {
	store *Store
}

var _ classifier.MemoryRepository = (*MerchantMemoryRepo)(nil)

// MerchantMemory returns the learned-merchant view of the store.
func (s *Store) MerchantMemory() *MerchantMemoryRepo {
	return &MerchantMemoryRepo{store: s}
}

// Get fetches the memory row for a normalized merchant key.
func (m *MerchantMemoryRepo) Get(ctx context.Context, merchantKey string) (models.MerchantMemory, bool, error) {
	var mem models.MerchantMemory
	err := m.store.db.QueryRowContext(ctx,
		`SELECT merchant_key, display_name, category, type, hit_count, last_seen_at
		 FROM merchant_memory WHERE merchant_key = ?`, merchantKey).
		Scan(&mem.MerchantKey, &mem.DisplayName, &mem.Category, &mem.Type, &mem.HitCount, &mem.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MerchantMemory{}, false, nil
	}
	if err != nil {
		return models.MerchantMemory{}, false, fmt.Errorf("storage: get merchant memory: %w", err)
	}
	return mem, true, nil
}

// Upsert inserts or replaces the memory row.
func (m *MerchantMemoryRepo) Upsert(ctx context.Context, mem models.MerchantMemory) error {
	_, err := m.store.db.ExecContext(ctx,
		`INSERT INTO merchant_memory (merchant_key, display_name, category, type, hit_count, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(merchant_key) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			type = excluded.type,
			hit_count = excluded.hit_count,
			last_seen_at = excluded.last_seen_at`,
		mem.MerchantKey, mem.DisplayName, mem.Category, mem.Type, mem.HitCount, mem.LastSeenAt)
	if err != nil {
		return fmt.Errorf("storage: upsert merchant memory: %w", err)
	}
	return nil
}
