package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"versereel/internal/services"
)

// GetCursor returns the sequential traversal state.
func (s *Store) GetCursor(ctx context.Context) (Cursor, error) {
	var (
		cursor     Cursor
		mode       string
		updatedRaw sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT collection, subunit, item, mode, updated_at FROM cursor WHERE id = 1",
	).Scan(&cursor.Collection, &cursor.Subunit, &cursor.Item, &mode, &updatedRaw)
	if err != nil {
		return Cursor{}, fmt.Errorf("get cursor: %w", err)
	}
	cursor.Mode = Mode(mode)
	if updatedRaw.Valid {
		if updated, err := parseTimeString(updatedRaw.String); err == nil {
			cursor.UpdatedAt = updated
		}
	}
	return cursor, nil
}

// SetCursor moves the cursor to pos without creating an item.
func (s *Store) SetCursor(ctx context.Context, pos Position) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateCursor(ctx, tx, pos, s.timestamp())
	})
}

// SetMode changes the selection mode. The cursor position is preserved.
func (s *Store) SetMode(ctx context.Context, mode Mode) error {
	if _, ok := ParseMode(string(mode)); !ok {
		return services.Wrap(services.ErrValidation, "ledger", "set mode", fmt.Sprintf("unknown mode %q", mode), nil)
	}
	_, err := s.execWithRetry(ctx, "UPDATE cursor SET mode = ?, updated_at = ? WHERE id = 1", string(mode), s.timestamp())
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

func updateCursor(ctx context.Context, tx *sql.Tx, pos Position, ts string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE cursor SET collection = ?, subunit = ?, item = ?, updated_at = ? WHERE id = 1",
		pos.Collection, pos.Subunit, pos.Item, ts,
	); err != nil {
		return fmt.Errorf("update cursor: %w", err)
	}
	return nil
}
