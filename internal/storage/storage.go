// Package storage provides the SQLite persistence layer: the message queue,
// the fingerprint log, account registry, merchant memory, ledger rows and the
// processed-transaction history. All monetary values are stored as decimal
// strings; parsing them back is lossless.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// Store wraps one SQLite database holding every persistent table.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path and ensures the schema
// exists. The caller owns Close.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: database path cannot be empty")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY churn under concurrent batch runs.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: initialize schema: %w", err)
	}

	logger.Info("storage opened", logging.Field{Key: "path", Value: path})
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS queue_items (
		id TEXT PRIMARY KEY,
		received_at TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		text TEXT NOT NULL,
		meta_json TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_queue_status ON queue_items(status, received_at);

	CREATE TABLE IF NOT EXISTS dedup_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL,
		seen_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_dedup_seen_at ON dedup_log(seen_at);

	CREATE TABLE IF NOT EXISTS accounts (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		number TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		aliases TEXT NOT NULL DEFAULT '',
		is_mine BOOLEAN NOT NULL DEFAULT 0,
		is_internal BOOLEAN NOT NULL DEFAULT 0,
		opening_balance TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS unknown_account_alerts (
		id TEXT PRIMARY KEY,
		seen_at TIMESTAMP NOT NULL,
		organization TEXT NOT NULL DEFAULT '',
		identifier TEXT NOT NULL DEFAULT '',
		merchant TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0',
		raw_text TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS merchant_memory (
		merchant_key TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		hit_count INTEGER NOT NULL DEFAULT 0,
		last_seen_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		account_key TEXT PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0',
		last_updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS budgets (
		category TEXT PRIMARY KEY,
		budgeted TEXT NOT NULL DEFAULT '0',
		spent TEXT NOT NULL DEFAULT '0',
		remaining TEXT NOT NULL DEFAULT '0',
		alert_threshold REAL NOT NULL DEFAULT 0.8,
		status TEXT NOT NULL DEFAULT '',
		cycle_start TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS debt_index (
		counterparty TEXT NOT NULL,
		account_ref TEXT NOT NULL,
		net_owed TEXT NOT NULL DEFAULT '0',
		last_updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (counterparty, account_ref)
	);

	CREATE TABLE IF NOT EXISTS processed_transactions (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		account_key TEXT NOT NULL DEFAULT '',
		merchant TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		is_incoming BOOLEAN NOT NULL DEFAULT 0,
		raw_text TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_processed_account ON processed_transactions(account_key, processed_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
