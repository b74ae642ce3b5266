package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"versereel/internal/config"
	"versereel/internal/fileutil"
	"versereel/internal/ledger"
	"versereel/internal/logging"
)

const bytesPerGB = 1 << 30

// Housekeeper archives uploaded videos and enforces artifact retention.
type Housekeeper struct {
	layout Layout
	cfg    config.Storage
	logger *slog.Logger
	now    func() time.Time
}

// NewHousekeeper constructs a Housekeeper for the layout and storage policy.
func NewHousekeeper(layout Layout, cfg config.Storage, logger *slog.Logger) *Housekeeper {
	return &Housekeeper{
		layout: layout,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "storage"),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for retention cutoffs.
func (h *Housekeeper) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

// Layout returns the artifact layout.
func (h *Housekeeper) Layout() Layout {
	return h.layout
}

// AfterUpload applies the post-upload policy to an item's artifacts and
// returns where the final video now lives ("" when it was deleted).
func (h *Housekeeper) AfterUpload(item *ledger.WorkItem) (string, error) {
	final := item.FinalPath
	var errs error

	if h.cfg.ArchiveUploaded && final != "" {
		archived := filepath.Join(h.layout.Dir(KindUploaded), filepath.Base(final))
		if err := fileutil.MoveFile(final, archived); err != nil {
			errs = errors.Join(errs, fmt.Errorf("archive final: %w", err))
		} else {
			final = archived
		}
	}

	if h.cfg.CleanupAfterUpload {
		paths := item.IntermediatePaths()
		if !h.cfg.KeepFinalVideos && final != "" {
			paths = append(paths, final)
			final = ""
		}
		for _, path := range paths {
			if _, err := fileutil.RemoveIfExists(path); err != nil {
				errs = errors.Join(errs, fmt.Errorf("remove %s: %w", filepath.Base(path), err))
			}
		}
	}
	return final, errs
}

// SweepResult totals a retention pass.
type SweepResult struct {
	Removed    int
	FreedBytes int64
}

func (r *SweepResult) add(other SweepResult) {
	r.Removed += other.Removed
	r.FreedBytes += other.FreedBytes
}

// SweepIntermediates removes intermediate artifacts older than the configured
// retention. Directories are swept concurrently.
func (h *Housekeeper) SweepIntermediates(ctx context.Context) (SweepResult, error) {
	cutoff := h.now().AddDate(0, 0, -h.cfg.IntermediateRetentionDays)
	return h.sweep(ctx, IntermediateKinds(), cutoff)
}

// EnforceStorageCap removes archived uploads older than the uploaded
// retention when the output directory exceeds the configured size.
func (h *Housekeeper) EnforceStorageCap(ctx context.Context) (SweepResult, error) {
	if h.cfg.MaxStorageGB <= 0 {
		return SweepResult{}, nil
	}
	size, err := fileutil.DirSize(h.layout.Root)
	if err != nil {
		return SweepResult{}, fmt.Errorf("measure output dir: %w", err)
	}
	limit := int64(h.cfg.MaxStorageGB * bytesPerGB)
	if size <= limit {
		return SweepResult{}, nil
	}
	h.logger.Info("storage over limit",
		logging.Int64("size_bytes", size),
		logging.Int64("limit_bytes", limit),
	)
	cutoff := h.now().AddDate(0, 0, -h.cfg.UploadedRetentionDays)
	return h.sweep(ctx, []Kind{KindUploaded}, cutoff)
}

// OutputSize returns the total size of the output directory.
func (h *Housekeeper) OutputSize() (int64, error) {
	return fileutil.DirSize(h.layout.Root)
}

func (h *Housekeeper) sweep(ctx context.Context, kinds []Kind, cutoff time.Time) (SweepResult, error) {
	var (
		mu    sync.Mutex
		total SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			result, err := removeOlderThan(gctx, h.layout.Dir(kind), cutoff)
			mu.Lock()
			total.add(result)
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("sweep %s: %w", kind, err)
			}
			if result.Removed > 0 {
				h.logger.Debug("swept artifacts",
					logging.String("kind", string(kind)),
					logging.Int("removed", result.Removed),
				)
			}
			return nil
		})
	}
	err := g.Wait()
	return total, err
}

func removeOlderThan(ctx context.Context, dir string, cutoff time.Time) (SweepResult, error) {
	var result SweepResult
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		removed, err := fileutil.RemoveIfExists(filepath.Join(dir, entry.Name()))
		if err != nil {
			return result, err
		}
		if removed {
			result.Removed++
			result.FreedBytes += info.Size()
		}
	}
	return result, nil
}
