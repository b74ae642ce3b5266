package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"versereel/internal/config"
	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/media/ffmpeg"
	"versereel/internal/media/ffprobe"
	"versereel/internal/notifications"
	"versereel/internal/passages"
	"versereel/internal/selector"
	"versereel/internal/services/piper"
	"versereel/internal/services/whisperx"
	"versereel/internal/services/youtube"
	"versereel/internal/storage"
	"versereel/internal/subtitles"
	"versereel/internal/workflow"
)

// Runtime is the wired set of components shared by the CLI and the daemon.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *ledger.Store
	Catalog     *passages.Catalog
	Selector    *selector.Selector
	Housekeeper *storage.Housekeeper
	Manager     *workflow.Manager
	Notifier    notifications.Service
}

// RuntimeOptions customizes Open.
type RuntimeOptions struct {
	// Stages replaces the external-tool stages built from config.
	Stages *workflow.StageSet
	// ManagerOptions are passed through to workflow.NewManager.
	ManagerOptions []workflow.ManagerOption
	// Notifier replaces the ntfy publisher built from config.
	Notifier notifications.Service
}

// Open creates the data directories, opens the ledger and catalog, and wires
// the workflow manager. Callers must Close the runtime.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	catalog, err := passages.Open(cfg.Passages)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load passages: %w", err)
	}

	layout := storage.NewLayout(cfg.Paths.OutputDir)
	if err := layout.Ensure(); err != nil {
		store.Close()
		return nil, err
	}
	stages := BuildStages(cfg, layout, logger)
	if opts.Stages != nil {
		stages = *opts.Stages
	}

	sel := selector.New(catalog, store, selector.ConstraintsFromConfig(cfg.Selection), selector.WithLogger(logger))
	hk := storage.NewHousekeeper(layout, cfg.Storage, logger)
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	managerOpts := append([]workflow.ManagerOption{
		workflow.WithHousekeeper(hk),
		workflow.WithNotifier(notifier),
	}, opts.ManagerOptions...)
	mgr := workflow.NewManager(cfg, store, sel, stages, logger, managerOpts...)
	if err := mgr.RecordSource(ctx, catalog); err != nil {
		logging.WarnWithContext(logger, "passage metadata not recorded", "catalog_meta_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "doctor and progress show stale catalog details"),
		)
	}

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Catalog:     catalog,
		Selector:    sel,
		Housekeeper: hk,
		Manager:     mgr,
		Notifier:    notifier,
	}, nil
}

// Close releases the ledger.
func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// BuildStages constructs the external-tool stage implementations from cfg.
// The subtitle stage is omitted when subtitles are skipped and the uploader
// when credentials are missing.
func BuildStages(cfg *config.Config, layout storage.Layout, logger *slog.Logger) workflow.StageSet {
	tool := ffmpeg.NewTool(cfg.Tools.FFmpeg)
	prober := ffprobe.NewProber(cfg.Tools.FFprobe)
	set := workflow.StageSet{
		Background: ffmpeg.NewBackgroundRenderer(tool, layout, cfg.Background, cfg.Video, logger),
		Speech:     piper.New(cfg.Tools.Piper, cfg.Speech, layout, logger),
		Aligner:    whisperx.NewService(cfg.Tools.UVX, cfg.Alignment, layout, logger),
		Composer:   ffmpeg.NewComposer(tool, layout, cfg.Video).WithInspector(prober),
		Prober:     prober,
	}
	if !cfg.Video.SkipSubtitles {
		set.Subtitler = subtitles.NewRenderer(layout, cfg.Subtitles, cfg.Video)
	}
	if uploader := youtube.NewUploader(cfg.Upload, logger); uploader.Configured() {
		set.Uploader = uploader
	}
	return set
}
