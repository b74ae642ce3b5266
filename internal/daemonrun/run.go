package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"versereel/internal/config"
	"versereel/internal/daemon"
	"versereel/internal/logging"
	"versereel/internal/preflight"
	"versereel/internal/services"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// Logger overrides the logger built from config.
	Logger *slog.Logger
	// SkipPreflight starts without checking binaries, directories and
	// credentials.
	SkipPreflight bool
	Runtime       RuntimeOptions
	Daemon        []daemon.Option
}

// Run starts the versereel scheduler and blocks until SIGINT, SIGTERM or
// cancellation of cmdCtx.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	if !opts.SkipPreflight {
		if err := checkPreflight(signalCtx, cfg, logger); err != nil {
			return err
		}
	}

	rt, err := Open(signalCtx, cfg, logger, opts.Runtime)
	if err != nil {
		logger.Error("open runtime", logging.Error(err))
		return err
	}
	defer rt.Close()

	daemonOpts := append([]daemon.Option{daemon.WithNotifier(rt.Notifier)}, opts.Daemon...)
	d, err := daemon.New(cfg, rt.Store, rt.Manager, rt.Housekeeper, logger, daemonOpts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	for _, health := range rt.Manager.HealthChecks(signalCtx) {
		if !health.Ready {
			logging.WarnWithContext(logger, "stage not ready", "stage_unhealthy",
				logging.String(logging.FieldStage, health.Name),
				logging.String("detail", health.Detail),
				logging.String(logging.FieldErrorHint, "run `versereel doctor`"),
			)
		}
	}

	if err := d.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("versereel scheduler shutting down")
	return nil
}

func checkPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	results := preflight.RunAll(ctx, cfg)
	for _, r := range results {
		if r.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.Bool("optional", r.Optional),
		)
	}
	blocking := preflight.Blocking(results)
	if len(blocking) == 0 {
		return nil
	}
	names := make([]string, 0, len(blocking))
	for _, r := range blocking {
		names = append(names, r.Name)
	}
	return services.Wrap(services.ErrConfiguration, "daemon", "preflight",
		"failed checks: "+strings.Join(names, ", "), nil)
}
