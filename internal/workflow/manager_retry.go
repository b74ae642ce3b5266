package workflow

import (
	"context"

	"versereel/internal/logging"
	"versereel/internal/services"
)

// RetryFailed re-runs the pipeline for failed items whose retry count is below
// maxRetries, oldest first and at most retry.batch_limit per call. Items keep
// their stored text and duration; nothing is re-selected.
func (m *Manager) RetryFailed(ctx context.Context, maxRetries int) (RetrySummary, error) {
	var summary RetrySummary
	items, err := m.store.ListFailedRetryable(ctx, maxRetries, m.cfg.Retry.BatchLimit)
	if err != nil {
		return summary, err
	}
	if len(items) == 0 {
		m.logger.Debug("no failed items eligible for retry", logging.Int("max_retries", maxRetries))
		return summary, nil
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		itemCtx := services.WithItemID(ctx, item.ID)
		logger := logging.WithContext(itemCtx, m.logger)
		if err := m.store.ResetForRetry(itemCtx, item.ID); err != nil {
			logger.Error("failed to reset item for retry", logging.Error(err))
			summary.StillFailed++
			continue
		}
		summary.Retried++
		logger.Info("retrying item",
			logging.Event("item_retry"),
			logging.NaturalKey(item.NaturalKey),
			logging.Int("retry_count", item.RetryCount),
			logging.String("previous_error", item.ErrorMessage),
		)
		if _, err := m.process(ctx, item); err != nil {
			summary.StillFailed++
			continue
		}
		summary.Successful++
	}

	m.logger.Info("retry sweep finished",
		logging.Event("retry_summary"),
		logging.Int("retried", summary.Retried),
		logging.Int("successful", summary.Successful),
		logging.Int("still_failed", summary.StillFailed),
	)
	return summary, nil
}

// RecoverInterrupted fails items a crashed or cancelled run left pending or
// processing so RetryFailed picks them up. Callers must hold the pipeline
// lock; another holder may have items legitimately in flight.
func (m *Manager) RecoverInterrupted(ctx context.Context) (int64, error) {
	recovered, err := m.store.RecoverInterrupted(ctx)
	if err != nil {
		return 0, err
	}
	if recovered > 0 {
		logging.WarnWithContext(m.logger, "interrupted items marked failed", "items_recovered",
			logging.Int64("count", recovered),
			logging.String(logging.FieldImpact, "items will be picked up by the next retry sweep"),
		)
	}
	return recovered, nil
}
