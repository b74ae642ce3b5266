package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"versereel/internal/services"
)

const itemColumns = "id, natural_key, collection, subunit, item, text, word_count, duration, background_path, audio_path, timestamps_path, subtitle_path, final_path, remote_id, remote_url, uploaded_at, status, retry_count, error_message, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(scanner rowScanner) (*WorkItem, error) {
	var (
		item        WorkItem
		statusStr   string
		background  sql.NullString
		audio       sql.NullString
		timestamps  sql.NullString
		subtitle    sql.NullString
		final       sql.NullString
		remoteID    sql.NullString
		remoteURL   sql.NullString
		uploadedRaw sql.NullString
		errorMsg    sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.NaturalKey,
		&item.Position.Collection,
		&item.Position.Subunit,
		&item.Position.Item,
		&item.Text,
		&item.WordCount,
		&item.Duration,
		&background,
		&audio,
		&timestamps,
		&subtitle,
		&final,
		&remoteID,
		&remoteURL,
		&uploadedRaw,
		&statusStr,
		&item.RetryCount,
		&errorMsg,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	item.Status = Status(statusStr)
	item.BackgroundPath = background.String
	item.AudioPath = audio.String
	item.TimestampsPath = timestamps.String
	item.SubtitlePath = subtitle.String
	item.FinalPath = final.String
	item.RemoteID = remoteID.String
	item.RemoteURL = remoteURL.String
	item.ErrorMessage = errorMsg.String
	if uploadedRaw.Valid {
		if uploaded, err := parseTimeString(uploadedRaw.String); err == nil {
			item.UploadedAt = &uploaded
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*WorkItem, error) {
	defer rows.Close()
	var items []*WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// requireAffected converts a zero-row update into ErrNotFound.
func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, services.ErrNotFound)
	}
	return nil
}

func loadStatus(ctx context.Context, tx *sql.Tx, id int64) (Status, error) {
	var status string
	err := tx.QueryRowContext(ctx, "SELECT status FROM work_items WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("work item %d: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load status: %w", err)
	}
	return Status(status), nil
}
