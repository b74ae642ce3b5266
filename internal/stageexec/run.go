package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/services"
	"versereel/internal/stage"
)

// Recorder persists a stage's artifact path.
type Recorder interface {
	SetStage(ctx context.Context, id int64, stage ledger.Stage, path string) error
}

// Func performs the stage work inside its lease and returns the artifact path.
type Func func(ctx context.Context, lease *stage.Lease) (string, error)

// Options controls a single stage execution.
type Options struct {
	Logger    *slog.Logger
	Store     Recorder
	Stage     ledger.Stage
	Item      *ledger.WorkItem
	Resources []stage.Resource
	Run       Func
}

// Run executes one stage inside a lease, records the artifact path on the
// item and logs stage_start, stage_complete or stage_failure. Failures are
// returned tagged with services.ErrStageFailure.
func Run(ctx context.Context, opts Options) (string, error) {
	if opts.Run == nil {
		return "", fmt.Errorf("stage function unavailable: %s", opts.Stage)
	}
	if opts.Store == nil {
		return "", errors.New("ledger store is required")
	}
	if opts.Item == nil {
		return "", errors.New("work item is required")
	}

	stageCtx := services.WithStage(ctx, string(opts.Stage))
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info(
		"stage started",
		logging.Event("stage_start"),
		logging.NaturalKey(opts.Item.NaturalKey),
	)
	started := time.Now()

	var path string
	err := stage.WithLease(stageCtx, opts.Resources, func(leaseCtx context.Context, lease *stage.Lease) error {
		var runErr error
		path, runErr = opts.Run(leaseCtx, lease)
		return runErr
	})
	if err == nil && strings.TrimSpace(path) == "" {
		err = errors.New("stage produced no artifact")
	}
	if err != nil {
		return "", handleFailure(stageLogger, opts.Stage, err, time.Since(started))
	}

	if err := opts.Store.SetStage(stageCtx, opts.Item.ID, opts.Stage, path); err != nil {
		return "", fmt.Errorf("persist %s artifact: %w", opts.Stage, err)
	}
	setArtifact(opts.Item, opts.Stage, path)

	stageLogger.Info(
		"stage completed",
		logging.Event("stage_complete"),
		logging.String("artifact_path", path),
		logging.Duration("elapsed", time.Since(started)),
	)
	return path, nil
}

func handleFailure(logger *slog.Logger, stageName ledger.Stage, stageErr error, elapsed time.Duration) error {
	if !errors.Is(stageErr, services.ErrStageFailure) {
		stageErr = services.Wrap(services.ErrStageFailure, string(stageName), "run", "", stageErr)
	}
	attrs := []logging.Attr{logging.Error(stageErr), logging.Duration("elapsed", elapsed)}
	if hint := services.Hint(stageErr); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	return stageErr
}

func setArtifact(item *ledger.WorkItem, stageName ledger.Stage, path string) {
	switch stageName {
	case ledger.StageBackground:
		item.BackgroundPath = path
	case ledger.StageSpeech:
		item.AudioPath = path
	case ledger.StageAlignment:
		item.TimestampsPath = path
	case ledger.StageSubtitles:
		item.SubtitlePath = path
	case ledger.StageComposition:
		item.FinalPath = path
	}
}
