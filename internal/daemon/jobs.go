package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"versereel/internal/config"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/scheduler"
	"versereel/internal/scratch"
	"versereel/internal/services"
)

// Job names registered on the scheduler.
const (
	JobGenerateBatch = "generate_batch"
	JobRetryFailed   = "retry_failed"
	JobCleanup       = "cleanup"
	JobMaintenance   = "maintenance"
	uploadJobPrefix  = "upload@"
)

// UploadJobName returns the job name for an upload slot such as "18:00".
func UploadJobName(at config.Clock) string {
	return uploadJobPrefix + at.String()
}

func (d *Daemon) registerJobs() error {
	sc := d.cfg.Scheduler
	loc, err := sc.Location()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "load timezone", sc.Timezone, err)
	}

	if sc.Enabled {
		if err := d.scheduler.Add(JobGenerateBatch, scheduler.Every(sc.GenerationEvery()), d.alerting(JobGenerateBatch, d.generateBatch)); err != nil {
			return err
		}
	}
	if d.cfg.Upload.ScheduleEnabled {
		for _, raw := range d.cfg.Upload.Times {
			at, err := config.ParseClock(raw)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "daemon", "parse upload time", raw, err)
			}
			if err := d.scheduler.Add(UploadJobName(at), scheduler.DailyAt(at, loc), d.alerting(UploadJobName(at), d.uploadWindow)); err != nil {
				return err
			}
		}
	}
	if err := d.scheduler.Add(JobRetryFailed, scheduler.Every(sc.RetryEvery()), d.alerting(JobRetryFailed, d.retryFailed)); err != nil {
		return err
	}

	cleanupAt, err := config.ParseClock(sc.CleanupTime)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "parse cleanup time", sc.CleanupTime, err)
	}
	if err := d.scheduler.Add(JobCleanup, scheduler.DailyAt(cleanupAt, loc), d.alerting(JobCleanup, d.cleanup)); err != nil {
		return err
	}

	day, err := config.ParseWeekday(sc.MaintenanceDay)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "parse maintenance day", sc.MaintenanceDay, err)
	}
	maintenanceAt, err := config.ParseClock(sc.MaintenanceTime)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "parse maintenance time", sc.MaintenanceTime, err)
	}
	return d.scheduler.Add(JobMaintenance, scheduler.WeeklyAt(day, maintenanceAt, loc), d.alerting(JobMaintenance, d.maintenance))
}

// alerting publishes an error notification when job fails. Cancellation is
// not reported.
func (d *Daemon) alerting(name string, job scheduler.Func) scheduler.Func {
	return func(ctx context.Context) error {
		err := job(ctx)
		if err == nil || d.notifier == nil || ctx.Err() != nil {
			return err
		}
		if notifyErr := d.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
			"context": name,
			"error":   err,
		}); notifyErr != nil {
			d.logger.Warn("job failure notification not delivered",
				logging.String(logging.FieldJob, name),
				logging.Error(notifyErr),
				logging.Event("notification_failed"),
			)
		}
		return err
	}
}

func (d *Daemon) generateBatch(ctx context.Context) error {
	summary := d.workflow.GenerateBatch(ctx, d.cfg.Scheduler.BatchSize)
	if err := ctx.Err(); err != nil {
		return err
	}
	if summary.Successful == 0 && summary.Failed > 0 {
		return fmt.Errorf("all %d generation attempts failed", summary.Failed)
	}
	return nil
}

// uploadWindow publishes due scheduled uploads, or the oldest ready item when
// nothing was scheduled for this window.
func (d *Daemon) uploadWindow(ctx context.Context) error {
	summary, err := d.workflow.ProcessDueUploads(ctx, d.now())
	if err != nil {
		return err
	}
	if summary.Due > 0 {
		if summary.Uploaded == 0 && summary.Failed > 0 {
			return fmt.Errorf("all %d scheduled uploads failed", summary.Failed)
		}
		return nil
	}
	_, err = d.workflow.UploadNext(ctx)
	return err
}

func (d *Daemon) retryFailed(ctx context.Context) error {
	_, err := d.workflow.RetryFailed(ctx, d.cfg.Retry.MaxRetries)
	return err
}

func (d *Daemon) cleanup(ctx context.Context) error {
	logger := logging.WithContext(ctx, d.logger)
	var errs []error

	intermediates, err := d.housekeeper.SweepIntermediates(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep intermediates: %w", err))
	}
	capped, err := d.housekeeper.EnforceStorageCap(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("enforce storage cap: %w", err))
	}
	cutoff := d.now().AddDate(0, 0, -d.cfg.Storage.QueueRetentionDays)
	purged, err := d.store.PurgeScheduleEntries(ctx, cutoff)
	if err != nil {
		errs = append(errs, err)
	}
	stale := scratch.CleanStale(ctx, d.cfg.ScratchDir(), scratch.StaleAfter, d.now(), logger)
	for _, e := range stale.Errors {
		errs = append(errs, fmt.Errorf("remove scratch %s: %w", e.Path, e.Error))
	}
	logsRemoved := 0
	if strings.TrimSpace(d.cfg.Paths.LogDir) != "" {
		logsRemoved = logging.PruneLogs(logger, d.cfg.Paths.LogDir, d.cfg.Logging.RetentionDays, d.now())
	}

	logger.Info("cleanup summary",
		logging.Event("cleanup_summary"),
		logging.Int("intermediates_removed", intermediates.Removed),
		logging.Int("uploads_removed", capped.Removed),
		logging.Int("scratch_removed", len(stale.Removed)),
		logging.Int64("freed_bytes", intermediates.FreedBytes+capped.FreedBytes+stale.FreedBytes),
		logging.Int64("schedule_entries_purged", purged),
		logging.Int("logs_removed", logsRemoved),
	)
	return errors.Join(errs...)
}

func (d *Daemon) maintenance(ctx context.Context) error {
	logger := logging.WithContext(ctx, d.logger)
	health, err := d.store.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("ledger health check: %w", err)
	}
	if !health.OK() {
		return services.Wrap(services.ErrValidation, "daemon", "integrity check",
			fmt.Sprintf("integrity check reported %q; skipping vacuum", health.Integrity), nil)
	}
	if err := d.store.Vacuum(ctx); err != nil {
		return err
	}
	after, err := d.store.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("ledger health check: %w", err)
	}
	logger.Info("ledger vacuumed",
		logging.Event("ledger_vacuum"),
		logging.Int64("size_before_bytes", health.SizeBytes),
		logging.Int64("size_after_bytes", after.SizeBytes),
		logging.Int("items", after.TotalItems),
	)
	return nil
}
