// Package scratch reclaims per-stage scratch directories left behind by
// interrupted runs.
package scratch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"versereel/internal/fileutil"
	"versereel/internal/logging"
)

// StaleAfter is the age past which a scratch directory is treated as left
// behind by an interrupted run.
const StaleAfter = 24 * time.Hour

// CleanStaleResult contains the outcome of a stale directory sweep.
type CleanStaleResult struct {
	Removed    []string
	FreedBytes int64
	Errors     []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes scratch directories under dir last modified before
// now-maxAge. A missing dir is not an error.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, now time.Time, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: ctx.Err()})
			return result
		}
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		size, _ := fileutil.DirSize(path)
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale scratch directory", "scratch_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check data_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		result.FreedBytes += size
		logger.Info("removed stale scratch directory",
			logging.String("path", path),
			logging.Duration("age", now.Sub(info.ModTime())),
			logging.Int64("bytes", size),
			logging.Event("scratch_cleanup"),
		)
	}
	return result
}

// DirInfo describes one scratch directory.
// DirInfo describes one scratch directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns the scratch directories under dir, oldest first.
func ListDirectories(dir string) ([]DirInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		size, _ := fileutil.DirSize(path)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	slices.SortFunc(dirs, func(a, b DirInfo) int { return a.ModTime.Compare(b.ModTime) })
	return dirs, nil
}
