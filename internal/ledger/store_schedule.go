package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"versereel/internal/services"
)

const scheduleColumns = "id, work_item_id, scheduled_at, status, retry_count, error_message, created_at, updated_at"

// ScheduleUpload queues a deferred upload of a ready item.
func (s *Store) ScheduleUpload(ctx context.Context, itemID int64, at time.Time) (*UploadScheduleEntry, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, err := loadStatus(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if status != StatusReady {
			return fmt.Errorf("work item %d is %s: %w", itemID, status, services.ErrNotReady)
		}
		ts := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO upload_schedule (work_item_id, scheduled_at, status, retry_count, created_at, updated_at)
             VALUES (?, ?, ?, 0, ?, ?)`,
			itemID, formatTime(at), SchedulePending, ts, ts)
		if err != nil {
			return fmt.Errorf("insert schedule entry: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.getScheduleEntry(ctx, id)
}

// DueUploads returns pending entries scheduled at or before now.
func (s *Store) DueUploads(ctx context.Context, now time.Time, limit int) ([]*UploadScheduleEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+scheduleColumns+` FROM upload_schedule
         WHERE status = ? AND scheduled_at <= ?
         ORDER BY scheduled_at, id LIMIT ?`,
		SchedulePending, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("due uploads: %w", err)
	}
	defer rows.Close()
	var entries []*UploadScheduleEntry
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListSchedule returns every schedule entry in the given states, soonest first.
func (s *Store) ListSchedule(ctx context.Context, statuses ...ScheduleStatus) ([]*UploadScheduleEntry, error) {
	query := "SELECT " + scheduleColumns + " FROM upload_schedule"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY scheduled_at, id"
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	defer rows.Close()
	var entries []*UploadScheduleEntry
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CompleteScheduledUpload marks an entry uploaded.
func (s *Store) CompleteScheduledUpload(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE upload_schedule SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?",
		ScheduleUploaded, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("complete scheduled upload: %w", err)
	}
	return requireAffected(res, "schedule entry", id)
}

// FailScheduledUpload records a failed attempt. The entry stays pending until
// it has failed maxAttempts times.
func (s *Store) FailScheduledUpload(ctx context.Context, id int64, message string, maxAttempts int) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE upload_schedule SET
             retry_count = retry_count + 1,
             status = CASE WHEN retry_count + 1 >= ? THEN ? ELSE status END,
             error_message = ?,
             updated_at = ?
         WHERE id = ?`,
		maxAttempts, ScheduleFailed, nullableString(strings.TrimSpace(message)), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("fail scheduled upload: %w", err)
	}
	return requireAffected(res, "schedule entry", id)
}

// PurgeScheduleEntries removes finished entries last touched before cutoff.
func (s *Store) PurgeScheduleEntries(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"DELETE FROM upload_schedule WHERE status != ? AND updated_at < ?",
		SchedulePending, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge schedule: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) getScheduleEntry(ctx context.Context, id int64) (*UploadScheduleEntry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+scheduleColumns+" FROM upload_schedule WHERE id = ?", id)
	entry, err := scanScheduleEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule entry %d: %w", id, services.ErrNotFound)
	}
	return entry, err
}

func scanScheduleEntry(scanner rowScanner) (*UploadScheduleEntry, error) {
	var (
		entry        UploadScheduleEntry
		status       string
		scheduledRaw string
		errorMsg     sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&entry.ID, &entry.WorkItemID, &scheduledRaw, &status, &entry.RetryCount,
		&errorMsg, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	entry.Status = ScheduleStatus(status)
	entry.ErrorMessage = errorMsg.String
	entry.ScheduledAt, _ = parseTimeString(scheduledRaw)
	entry.CreatedAt, _ = parseTimeString(createdRaw)
	entry.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &entry, nil
}
