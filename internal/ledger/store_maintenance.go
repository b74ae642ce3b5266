package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
)

// SetMeta stores a key/value pair such as the last maintenance time.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.timestamp())
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns the stored value and whether it was present.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}

// Vacuum compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// DatabaseHealth summarizes ledger diagnostics.
type DatabaseHealth struct {
	Path          string
	SizeBytes     int64
	SchemaVersion int
	Integrity     string
	TotalItems    int
}

// OK reports whether the integrity check passed.
func (h DatabaseHealth) OK() bool {
	return h.Integrity == "ok"
}

// CheckHealth runs SQLite's integrity check and collects basic metrics.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		health.SizeBytes = info.Size()
	}
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&health.Integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM work_items").Scan(&health.TotalItems); err != nil {
		return health, fmt.Errorf("count items: %w", err)
	}
	return health, nil
}
