package ledger

import (
	"context"
	"fmt"
	"time"
)

// AccumulateStat adds delta to the counters for the calendar day of date.
func (s *Store) AccumulateStat(ctx context.Context, date time.Time, delta StatDelta) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO daily_stats (date, items_generated, items_uploaded, total_duration, errors)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(date) DO UPDATE SET
             items_generated = items_generated + excluded.items_generated,
             items_uploaded  = items_uploaded + excluded.items_uploaded,
             total_duration  = total_duration + excluded.total_duration,
             errors          = errors + excluded.errors`,
		date.Format(dateLayout), delta.Generated, delta.Uploaded, delta.Duration, delta.Errors)
	if err != nil {
		return fmt.Errorf("accumulate stat: %w", err)
	}
	return nil
}

// RecentStats returns up to days rows, newest first.
func (s *Store) RecentStats(ctx context.Context, days int) ([]DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT date, items_generated, items_uploaded, total_duration, errors
         FROM daily_stats ORDER BY date DESC LIMIT ?`, days)
	if err != nil {
		return nil, fmt.Errorf("recent stats: %w", err)
	}
	defer rows.Close()
	var stats []DailyStat
	for rows.Next() {
		var stat DailyStat
		if err := rows.Scan(&stat.Date, &stat.ItemsGenerated, &stat.ItemsUploaded, &stat.TotalDuration, &stat.Errors); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// CountsByStatus returns the number of items per status. Every status is
// present in the result.
func (s *Store) CountsByStatus(ctx context.Context) (map[Status]int, error) {
	counts := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		counts[status] = 0
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT status, COUNT(1) FROM work_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// ProcessingStats reports totals and how many failed items are still
// eligible for retry under maxRetries.
func (s *Store) ProcessingStats(ctx context.Context, maxRetries int) (ProcessingStats, error) {
	var stats ProcessingStats
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT
             COUNT(1),
             COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN status = ? AND retry_count < ? THEN 1 ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN status = ? AND retry_count >= ? THEN 1 ELSE 0 END), 0)
         FROM work_items`,
		StatusFailed, StatusFailed, maxRetries, StatusFailed, maxRetries,
	).Scan(&stats.Total, &stats.Failed, &stats.Retryable, &stats.PermanentlyFailed)
	if err != nil {
		return ProcessingStats{}, fmt.Errorf("processing stats: %w", err)
	}
	return stats, nil
}
