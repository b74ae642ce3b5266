package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"versereel/internal/services"
)

// CreateOption adjusts CreateWorkItem.
type CreateOption func(*createOptions)

type createOptions struct {
	cursor *Position
}

// AdvanceCursor moves the sequential cursor to pos in the same transaction
// that creates the item.
func AdvanceCursor(pos Position) CreateOption {
	return func(o *createOptions) {
		p := pos
		o.cursor = &p
	}
}

// CreateWorkItem inserts a pending item. The natural-key check and the insert
// share one transaction; an existing key yields services.ErrDuplicateKey and
// leaves the ledger unchanged.
func (s *Store) CreateWorkItem(ctx context.Context, item NewItem, opts ...CreateOption) (*WorkItem, error) {
	var options createOptions
	for _, opt := range opts {
		opt(&options)
	}
	if strings.TrimSpace(item.Collection) == "" || item.Subunit <= 0 || item.Item <= 0 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "create", fmt.Sprintf("invalid position %s", item.Position), nil)
	}
	key := item.NaturalKey()

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM work_items WHERE natural_key = ?", key).Scan(&existing); err != nil {
			return fmt.Errorf("check natural key: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("work item %s: %w", key, services.ErrDuplicateKey)
		}
		ts := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO work_items (
                natural_key, collection, subunit, item, text, word_count, duration,
                status, retry_count, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			key, item.Collection, item.Subunit, item.Item, item.Text, item.WordCount, item.Duration,
			StatusPending, ts, ts,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("work item %s: %w", key, services.ErrDuplicateKey)
			}
			return fmt.Errorf("insert work item: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if options.cursor != nil {
			if err := updateCursor(ctx, tx, *options.cursor, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Exists reports whether an item with the natural key is recorded.
func (s *Store) Exists(ctx context.Context, naturalKey string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM work_items WHERE natural_key = ?", naturalKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return count > 0, nil
}

// GetByID fetches an item by identifier. It returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*WorkItem, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+itemColumns+" FROM work_items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item %d: %w", id, err)
	}
	return item, nil
}

// GetByKey fetches an item by natural key. It returns nil, nil when absent.
func (s *Store) GetByKey(ctx context.Context, naturalKey string) (*WorkItem, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+itemColumns+" FROM work_items WHERE natural_key = ?", naturalKey)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item %s: %w", naturalKey, err)
	}
	return item, nil
}

// List returns items in creation order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*WorkItem, error) {
	query := "SELECT " + itemColumns + " FROM work_items"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at, id"
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	return scanItems(rows)
}

// NextReady returns the oldest ready item that has no pending upload schedule
// entry, or nil when there is none. Scheduled items wait for their slot.
func (s *Store) NextReady(ctx context.Context) (*WorkItem, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+itemColumns+` FROM work_items
         WHERE status = ?
           AND NOT EXISTS (SELECT 1 FROM upload_schedule s WHERE s.work_item_id = work_items.id AND s.status = ?)
         ORDER BY created_at, id LIMIT 1`, StatusReady, SchedulePending)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next ready: %w", err)
	}
	return item, nil
}

// SetStage records the artifact path produced by a stage.
func (s *Store) SetStage(ctx context.Context, id int64, stage Stage, path string) error {
	column, err := stage.column()
	if err != nil {
		return services.Wrap(services.ErrValidation, "ledger", "set stage", "", err)
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE work_items SET "+column+" = ?, updated_at = ? WHERE id = ?",
		nullableString(path), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set stage %s: %w", stage, err)
	}
	return requireAffected(res, "work item", id)
}

// SetStatus moves an item along its forward lifecycle. Setting the current
// status again is a no-op.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == status {
			return nil
		}
		if !canTransition(current, status) {
			return services.Wrap(services.ErrValidation, "ledger", "set status",
				fmt.Sprintf("work item %d cannot move from %s to %s", id, current, status), nil)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE work_items SET status = ?, updated_at = ? WHERE id = ?", status, s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		return nil
	})
}

// SetDuration replaces the stored duration with a measured value.
func (s *Store) SetDuration(ctx context.Context, id int64, seconds float64) error {
	if seconds <= 0 {
		return services.Wrap(services.ErrValidation, "ledger", "set duration", fmt.Sprintf("invalid duration %.3f", seconds), nil)
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE work_items SET duration = ?, updated_at = ? WHERE id = ?", seconds, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set duration: %w", err)
	}
	return requireAffected(res, "work item", id)
}

// MarkUploaded records the remote identity of a ready item. Marking an item
// that is already uploaded under the same remote id is a no-op.
func (s *Store) MarkUploaded(ctx context.Context, id int64, remoteID, remoteURL string) error {
	if strings.TrimSpace(remoteID) == "" {
		return services.Wrap(services.ErrValidation, "ledger", "mark uploaded", "remote id required", nil)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			status   string
			existing sql.NullString
		)
		err := tx.QueryRowContext(ctx, "SELECT status, remote_id FROM work_items WHERE id = ?", id).Scan(&status, &existing)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("work item %d: %w", id, services.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load work item: %w", err)
		}
		switch Status(status) {
		case StatusUploaded:
			if existing.String == remoteID {
				return nil
			}
			return services.Wrap(services.ErrValidation, "ledger", "mark uploaded",
				fmt.Sprintf("work item %d already uploaded as %s", id, existing.String), nil)
		case StatusReady:
		default:
			return fmt.Errorf("work item %d is %s: %w", id, status, services.ErrNotReady)
		}
		ts := s.timestamp()
		_, err = tx.ExecContext(ctx,
			`UPDATE work_items SET status = ?, remote_id = ?, remote_url = ?, uploaded_at = ?,
                error_message = NULL, updated_at = ? WHERE id = ?`,
			StatusUploaded, remoteID, nullableString(remoteURL), ts, ts, id)
		if err != nil {
			return fmt.Errorf("mark uploaded: %w", err)
		}
		return nil
	})
}

// MarkFailed records a failure, incrementing the retry counter.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if current != StatusPending && current != StatusProcessing {
			return services.Wrap(services.ErrValidation, "ledger", "mark failed",
				fmt.Sprintf("work item %d is %s", id, current), nil)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE work_items SET status = ?, retry_count = retry_count + 1, error_message = ?, updated_at = ?
             WHERE id = ?`,
			StatusFailed, nullableString(strings.TrimSpace(message)), s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return nil
	})
}

// ResetForRetry returns a failed item to pending, keeping its retry count.
// A pending item is left as is.
func (s *Store) ResetForRetry(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		switch current {
		case StatusPending:
			return nil
		case StatusFailed:
		default:
			return services.Wrap(services.ErrValidation, "ledger", "reset for retry",
				fmt.Sprintf("work item %d is %s, not failed", id, current), nil)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE work_items SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?",
			StatusPending, s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("reset for retry: %w", err)
		}
		return nil
	})
}

// ListFailedRetryable returns failed items below maxRetries, least recently
// touched first.
func (s *Store) ListFailedRetryable(ctx context.Context, maxRetries, limit int) ([]*WorkItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+itemColumns+` FROM work_items
         WHERE status = ? AND retry_count < ?
         ORDER BY updated_at, id LIMIT ?`,
		StatusFailed, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed retryable: %w", err)
	}
	return scanItems(rows)
}

// RecoverInterrupted fails every item a crashed run left pending or
// processing so the retry sweep can pick it up. Items only rest in those
// states while a run holds the pipeline lock, so callers must hold it too.
// It returns the number of items recovered.
func (s *Store) RecoverInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE work_items SET status = ?, retry_count = retry_count + 1, error_message = ?, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusFailed, InterruptedMessage, s.timestamp(), StatusPending, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("recover interrupted: %w", err)
	}
	return res.RowsAffected()
}
