package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/selector"
	"versereel/internal/services"
	"versereel/internal/stage"
	"versereel/internal/stageexec"
)

// durationTolerance is how far the measured narration may drift from the
// estimate before the stored duration is replaced.
const durationTolerance = 0.05

// Generate produces one video. With a nil candidate the selector picks the
// next one. The returned item reflects its final state even when err is a
// stage failure; selection exhaustion returns services.ErrSelectionExhausted
// without touching the ledger and a duplicate claim returns
// services.ErrDuplicateKey.
func (m *Manager) Generate(ctx context.Context, candidate *selector.Candidate) (*ledger.WorkItem, error) {
	if m.selector == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "generate", "selector unavailable", nil)
	}
	if candidate == nil {
		next, err := m.nextCandidate(ctx)
		if err != nil {
			return nil, err
		}
		candidate = next
	}
	item, err := m.selector.Claim(ctx, *candidate)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateKey) {
			m.logger.Info("candidate already claimed",
				logging.NaturalKey(candidate.NaturalKey()),
				logging.Event("candidate_skipped"),
			)
		}
		return nil, err
	}
	m.logger.Info("work item created",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.NaturalKey(item.NaturalKey),
		logging.String("mode", string(candidate.Mode)),
		logging.Int("word_count", item.WordCount),
		logging.Float64("estimated_duration", item.Duration),
		logging.Event("item_created"),
	)
	return m.process(ctx, item)
}

func (m *Manager) nextCandidate(ctx context.Context) (*selector.Candidate, error) {
	result, err := m.selector.Next(ctx, "")
	if err != nil {
		return nil, err
	}
	switch r := result.(type) {
	case selector.Accepted:
		candidate := r.Candidate
		return &candidate, nil
	case selector.Exhausted:
		return nil, services.Wrap(services.ErrSelectionExhausted, "selector", "next", r.String(), nil)
	default:
		return nil, fmt.Errorf("unexpected selection result %T", result)
	}
}

// GenerateBatch runs Generate up to n times. Per-item failures are counted,
// not returned; the batch stops early when selection is exhausted or ctx ends.
func (m *Manager) GenerateBatch(ctx context.Context, n int) BatchSummary {
	summary := BatchSummary{Requested: n}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		_, err := m.Generate(ctx, nil)
		switch {
		case err == nil:
			summary.Successful++
		case errors.Is(err, services.ErrSelectionExhausted):
			summary.Exhausted = true
		case errors.Is(err, services.ErrDuplicateKey):
			summary.Skipped++
		default:
			summary.Failed++
			if !errors.Is(err, services.ErrStageFailure) {
				m.logger.Error("generation failed", logging.Error(err), logging.Event("generation_failure"))
			}
		}
		if summary.Exhausted {
			break
		}
	}
	m.logger.Info("batch finished",
		logging.Event("batch_summary"),
		logging.Int("requested", summary.Requested),
		logging.Int("successful", summary.Successful),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("exhausted", summary.Exhausted),
	)
	if summary.Successful+summary.Failed > 0 || summary.Exhausted {
		m.notify(ctx, m.logger, notifications.EventBatchCompleted, notifications.Payload{
			"successful": summary.Successful,
			"failed":     summary.Failed,
			"exhausted":  summary.Exhausted,
		})
	}
	return summary
}

// process moves a pending item through every stage to ready or failed.
func (m *Manager) process(ctx context.Context, item *ledger.WorkItem) (*ledger.WorkItem, error) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, m.logger).With(logging.NaturalKey(item.NaturalKey))

	if err := m.store.SetStatus(ctx, item.ID, ledger.StatusProcessing); err != nil {
		return item, fmt.Errorf("start processing: %w", err)
	}
	item.Status = ledger.StatusProcessing

	if err := m.runStages(ctx, logger, item); err != nil {
		if ctx.Err() != nil {
			// Left in processing; startup recovery fails it for retry.
			logger.Info("processing interrupted", logging.Event("item_interrupted"))
			return item, err
		}
		m.fail(ctx, logger, item, err)
		return item, err
	}

	if err := m.store.SetStatus(ctx, item.ID, ledger.StatusReady); err != nil {
		return item, fmt.Errorf("mark ready: %w", err)
	}
	item.Status = ledger.StatusReady
	m.recordStat(ctx, logger, ledger.StatDelta{Generated: 1, Duration: item.Duration})
	logger.Info("item ready",
		logging.Event("item_ready"),
		logging.String("final_path", item.FinalPath),
		logging.Float64("duration", item.Duration),
	)
	return item, nil
}

func (m *Manager) fail(ctx context.Context, logger *slog.Logger, item *ledger.WorkItem, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	m.processErrors.Add(1)
	if err := m.store.MarkFailed(ctx, item.ID, message); err != nil {
		logger.Error("failed to persist item failure", logging.Error(err))
	} else {
		item.Status = ledger.StatusFailed
		item.RetryCount++
		item.ErrorMessage = message
	}
	m.recordStat(ctx, logger, ledger.StatDelta{Errors: 1})
	logging.WarnWithContext(logger, "item failed", "item_failed",
		logging.Int("retry_count", item.RetryCount),
		logging.String("error_message", message),
		logging.String(logging.FieldImpact, "item will be retried by the retry sweep"),
	)
}

func (m *Manager) runStages(ctx context.Context, logger *slog.Logger, item *ledger.WorkItem) error {
	key := item.NaturalKey

	if _, err := m.runStage(ctx, logger, item, ledger.StageBackground, m.stages.Background, m.scratch("background"),
		func(ctx context.Context, lease *stage.Lease) (string, error) {
			return m.stages.Background.Render(ctx, stage.BackgroundRequest{
				Key:      key,
				Text:     item.Text,
				Duration: item.Duration,
				WorkDir:  lease.ScratchDir,
			})
		}); err != nil {
		return err
	}

	if _, err := m.runStage(ctx, logger, item, ledger.StageSpeech, m.stages.Speech, m.scratch("speech"),
		func(ctx context.Context, lease *stage.Lease) (string, error) {
			path, err := m.stages.Speech.Synthesize(ctx, stage.SpeechRequest{Key: key, Text: item.Text, WorkDir: lease.ScratchDir})
			if err != nil {
				return "", err
			}
			if err := m.reconcileDuration(ctx, logger, item, path); err != nil {
				return "", err
			}
			return path, nil
		}); err != nil {
		return err
	}

	alignResources := m.scratch("alignment")
	if m.gpu != nil {
		alignResources = append(alignResources, m.gpu)
	}
	if _, err := m.runStage(ctx, logger, item, ledger.StageAlignment, m.stages.Aligner, alignResources,
		func(ctx context.Context, lease *stage.Lease) (string, error) {
			return m.stages.Aligner.Align(ctx, stage.AlignRequest{
				Key:       key,
				AudioPath: item.AudioPath,
				Text:      item.Text,
				WorkDir:   lease.ScratchDir,
			})
		}); err != nil {
		return err
	}

	if !m.cfg.Video.SkipSubtitles {
		if _, err := m.runStage(ctx, logger, item, ledger.StageSubtitles, m.stages.Subtitler, nil,
			func(ctx context.Context, _ *stage.Lease) (string, error) {
				return m.stages.Subtitler.Render(ctx, stage.SubtitleRequest{
					Key:           key,
					AlignmentPath: item.TimestampsPath,
					Duration:      item.Duration,
				})
			}); err != nil {
			return err
		}
	}

	_, err := m.runStage(ctx, logger, item, ledger.StageComposition, m.stages.Composer, m.scratch("compose"),
		func(ctx context.Context, lease *stage.Lease) (string, error) {
			subtitles := item.SubtitlePath
			if m.cfg.Video.SkipSubtitles {
				subtitles = ""
			}
			return m.stages.Composer.Compose(ctx, stage.ComposeRequest{
				Key:            key,
				BackgroundPath: item.BackgroundPath,
				AudioPath:      item.AudioPath,
				SubtitlePath:   subtitles,
				Duration:       item.Duration,
				WorkDir:        lease.ScratchDir,
			})
		})
	return err
}

func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, item *ledger.WorkItem, name ledger.Stage, handler any, resources []stage.Resource, run stageexec.Func) (string, error) {
	if handler == nil {
		return "", services.Wrap(services.ErrStageFailure, string(name), "run", "stage not configured",
			services.ErrConfiguration)
	}
	setStageLogger(handler, logging.WithContext(services.WithStage(ctx, string(name)), logger))
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    logger,
		Store:     m.store,
		Stage:     name,
		Item:      item,
		Resources: resources,
		Run:       run,
	})
}

func (m *Manager) scratch(prefix string) []stage.Resource {
	return []stage.Resource{stage.ScratchDir{Parent: m.scratchDir, Prefix: prefix}}
}

// reconcileDuration replaces the estimated duration with the measured length
// of the narration when they differ by more than durationTolerance.
func (m *Manager) reconcileDuration(ctx context.Context, logger *slog.Logger, item *ledger.WorkItem, audioPath string) error {
	if m.stages.Prober == nil {
		return nil
	}
	measured, err := m.stages.Prober.Duration(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("measure narration: %w", err)
	}
	if measured <= 0 {
		return services.Wrap(services.ErrValidation, "speech", "measure narration", "narration has no duration", nil)
	}
	if math.Abs(measured-item.Duration) <= durationTolerance {
		return nil
	}
	if err := m.store.SetDuration(ctx, item.ID, measured); err != nil {
		return err
	}
	logger.Info("narration duration reconciled",
		logging.Event("duration_reconciled"),
		logging.Float64("estimated", item.Duration),
		logging.Float64("measured", measured),
	)
	item.Duration = measured
	return nil
}
