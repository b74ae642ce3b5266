package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs removes daily log files in dir older than retentionDays, keeping
// the file for the current day. A retentionDays value of 0 disables pruning.
// It returns the number of files removed.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	current := filepath.Base(DailyLogPath(dir, now))
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current {
			continue
		}
		if ok, _ := filepath.Match(LogFilePrefix+"-*.log", name); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("log_path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old logs pruned", Int("removed", removed), Event("log_pruned"))
	}
	return removed
}
