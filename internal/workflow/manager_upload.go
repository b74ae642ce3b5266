package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/passages"
	"versereel/internal/services"
	"versereel/internal/services/youtube"
	"versereel/internal/stage"
)

// dueUploadLimit bounds one ProcessDueUploads pass.
const dueUploadLimit = 50

const (
	recordUploadAttempts = 3
	recordUploadBackoff  = 250 * time.Millisecond
)

// Upload publishes a ready item. Unknown ids return services.ErrNotFound and
// items that are not ready return services.ErrNotReady. A failed upload leaves
// the item ready.
func (m *Manager) Upload(ctx context.Context, id int64) (*ledger.WorkItem, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("work item %d: %w", id, services.ErrNotFound)
	}
	return m.upload(ctx, item)
}

// UploadNext publishes the oldest ready item. It returns (nil, nil) when no
// item is ready.
func (m *Manager) UploadNext(ctx context.Context) (*ledger.WorkItem, error) {
	item, err := m.store.NextReady(ctx)
	if err != nil {
		return nil, err
	}
	if item == nil {
		m.logger.Info("no ready items to upload", logging.Event("upload_idle"))
		return nil, nil
	}
	return m.upload(ctx, item)
}

// ScheduleUpload defers the upload of a ready item until at.
func (m *Manager) ScheduleUpload(ctx context.Context, id int64, at time.Time) (*ledger.UploadScheduleEntry, error) {
	entry, err := m.store.ScheduleUpload(ctx, id, at)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithItemID(ctx, id), m.logger).Info("upload scheduled",
		logging.Event("upload_scheduled"),
		logging.Int64("schedule_id", entry.ID),
		logging.Time("scheduled_at", entry.ScheduledAt),
	)
	return entry, nil
}

// ProcessDueUploads uploads every pending schedule entry due at now. Entries
// whose item was uploaded out of band are completed without a second upload.
func (m *Manager) ProcessDueUploads(ctx context.Context, now time.Time) (ScheduleSummary, error) {
	var summary ScheduleSummary
	entries, err := m.store.DueUploads(ctx, now, dueUploadLimit)
	if err != nil {
		return summary, err
	}
	summary.Due = len(entries)

	for _, entry := range entries {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		entryCtx := services.WithItemID(ctx, entry.WorkItemID)
		logger := logging.WithContext(entryCtx, m.logger).With(logging.Int64("schedule_id", entry.ID))

		uploadErr := m.uploadScheduled(entryCtx, entry.WorkItemID)
		if uploadErr == nil {
			if err := m.store.CompleteScheduledUpload(entryCtx, entry.ID); err != nil {
				logger.Error("failed to complete schedule entry", logging.Error(err))
			}
			summary.Uploaded++
			continue
		}
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		summary.Failed++
		if err := m.store.FailScheduledUpload(entryCtx, entry.ID, uploadErr.Error(), m.cfg.Retry.MaxRetries); err != nil {
			logger.Error("failed to record schedule failure", logging.Error(err))
		}
	}

	if summary.Due > 0 {
		m.logger.Info("scheduled uploads processed",
			logging.Event("schedule_summary"),
			logging.Int("due", summary.Due),
			logging.Int("uploaded", summary.Uploaded),
			logging.Int("failed", summary.Failed),
		)
	}
	return summary, nil
}

func (m *Manager) uploadScheduled(ctx context.Context, id int64) error {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("work item %d: %w", id, services.ErrNotFound)
	}
	if item.Status == ledger.StatusUploaded {
		return nil
	}
	_, err = m.upload(ctx, item)
	return err
}

func (m *Manager) upload(ctx context.Context, item *ledger.WorkItem) (*ledger.WorkItem, error) {
	if item.Status != ledger.StatusReady {
		return item, fmt.Errorf("work item %d is %s: %w", item.ID, item.Status, services.ErrNotReady)
	}
	if m.stages.Uploader == nil {
		return item, services.Wrap(services.ErrConfiguration, "upload", "upload", "no uploader configured", nil)
	}

	ctx = services.WithStage(services.WithItemID(ctx, item.ID), "upload")
	logger := logging.WithContext(ctx, m.logger).With(logging.NaturalKey(item.NaturalKey))
	setStageLogger(m.stages.Uploader, logger)

	metadata := youtube.RenderMetadata(m.cfg.Upload, youtube.Passage{
		Reference: passages.Reference(item.Position.Collection, item.Position.Subunit, item.Position.Item),
		Text:      item.Text,
		Version:   m.passageVersion(),
	})
	logger.Info("upload started",
		logging.Event("upload_start"),
		logging.String("title", metadata.Title),
		logging.String("privacy", metadata.Privacy),
	)
	started := m.now()

	result, err := m.stages.Uploader.Upload(ctx, stage.UploadRequest{Path: item.FinalPath, Metadata: metadata})
	if err != nil {
		m.recordStat(ctx, logger, ledger.StatDelta{Errors: 1})
		attrs := []logging.Attr{logging.Error(err)}
		if hint := services.Hint(err); hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		}
		logging.ErrorWithContext(logger, "upload failed", "upload_failure", attrs...)
		return item, err
	}

	if err := m.recordUpload(ctx, item.ID, result); err != nil {
		logging.ErrorWithContext(logger, "upload published but not recorded", "upload_unrecorded",
			logging.Error(err),
			logging.String("remote_id", result.RemoteID),
			logging.String("remote_url", result.RemoteURL),
			logging.String(logging.FieldImpact, "item stays ready and a later upload would publish it again"),
			logging.String(logging.FieldErrorHint, "delete the remote video or pause uploads until the ledger is writable"),
		)
		return item, fmt.Errorf("record upload %s (%s): %w", result.RemoteID, result.RemoteURL, err)
	}
	uploadedAt := m.now()
	item.Status = ledger.StatusUploaded
	item.RemoteID = result.RemoteID
	item.RemoteURL = result.RemoteURL
	item.UploadedAt = &uploadedAt
	m.recordStat(ctx, logger, ledger.StatDelta{Uploaded: 1})

	m.afterUpload(ctx, logger, item)
	logger.Info("upload completed",
		logging.Event("upload_complete"),
		logging.String("remote_id", result.RemoteID),
		logging.String("remote_url", result.RemoteURL),
		logging.Duration("elapsed", uploadedAt.Sub(started)),
	)
	m.notify(ctx, logger, notifications.EventUploadCompleted, notifications.Payload{
		"reference": passages.Reference(item.Position.Collection, item.Position.Subunit, item.Position.Item),
		"url":       result.RemoteURL,
	})
	return item, nil
}

// recordUpload marks the item uploaded, retrying with backoff. The video is
// already public, so cancellation of ctx does not stop the write.
func (m *Manager) recordUpload(ctx context.Context, id int64, result stage.UploadResult) error {
	ctx = context.WithoutCancel(ctx)
	delay := recordUploadBackoff
	var err error
	for attempt := 1; ; attempt++ {
		err = m.store.MarkUploaded(ctx, id, result.RemoteID, result.RemoteURL)
		if err == nil || attempt == recordUploadAttempts || !services.Retryable(err) ||
			errors.Is(err, services.ErrNotReady) || errors.Is(err, services.ErrValidation) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
}

// afterUpload applies the archive and cleanup policy and keeps the stored
// artifact paths in step with what is left on disk.
func (m *Manager) afterUpload(ctx context.Context, logger *slog.Logger, item *ledger.WorkItem) {
	if m.housekeeper == nil {
		return
	}
	final, err := m.housekeeper.AfterUpload(item)
	if err != nil {
		logging.WarnWithContext(logger, "post-upload housekeeping incomplete", "housekeeping_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "artifacts remain until the cleanup job runs"),
		)
	}

	var updateErr error
	if final != item.FinalPath {
		updateErr = errors.Join(updateErr, m.store.SetStage(ctx, item.ID, ledger.StageComposition, final))
		item.FinalPath = final
	}
	if m.cfg.Storage.CleanupAfterUpload {
		for _, name := range []ledger.Stage{ledger.StageBackground, ledger.StageSpeech, ledger.StageAlignment, ledger.StageSubtitles} {
			if item.ArtifactPath(name) == "" {
				continue
			}
			updateErr = errors.Join(updateErr, m.store.SetStage(ctx, item.ID, name, ""))
		}
		item.BackgroundPath, item.AudioPath, item.TimestampsPath, item.SubtitlePath = "", "", "", ""
	}
	if updateErr != nil {
		logger.Warn("failed to update artifact paths", logging.Error(updateErr))
	}
}
