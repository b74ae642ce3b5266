package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"versereel/internal/config"
	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/scheduler"
	"versereel/internal/storage"
	"versereel/internal/workflow"
)

// Daemon owns the scheduler loop and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *ledger.Store
	workflow    *workflow.Manager
	housekeeper *storage.Housekeeper
	scheduler   *scheduler.Scheduler
	notifier    notifications.Service
	now         func() time.Time

	lock    *PipelineLock
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	LedgerPath   string
	Jobs         []scheduler.JobStats
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock overrides the time source for the scheduler and job bodies.
func WithClock(now func() time.Time) Option {
	return func(d *Daemon) {
		if now != nil {
			d.now = now
		}
	}
}

// WithNotifier publishes an error event whenever a job fails.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		d.notifier = n
	}
}

// New constructs a daemon and registers its jobs from cfg.
func New(cfg *config.Config, store *ledger.Store, wf *workflow.Manager, hk *storage.Housekeeper, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || hk == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and housekeeper")
	}
	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		workflow:    wf,
		housekeeper: hk,
		now:         time.Now,
		lock:        NewPipelineLock(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scheduler = scheduler.New(logger, scheduler.WithClock(d.now))
	if err := d.registerJobs(); err != nil {
		return nil, err
	}
	return d, nil
}

// Run acquires the lock, recovers interrupted items and runs the scheduler
// until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.lock.TryAcquire(); err != nil {
		return err
	}
	defer func() {
		if err := d.lock.Release(); err != nil {
			d.logger.Warn("failed to release pipeline lock", logging.Error(err))
		}
	}()

	if _, err := d.workflow.RecoverInterrupted(ctx); err != nil {
		return fmt.Errorf("recover interrupted items: %w", err)
	}

	d.logger.Info("versereel scheduler started",
		logging.String("lock", d.lock.Path()),
		logging.Int("jobs", len(d.scheduler.Stats())),
		logging.Event("daemon_start"),
	)
	err := d.scheduler.Run(ctx)
	d.logger.Info("versereel scheduler stopped", logging.Event("daemon_stop"))
	return err
}

// Status returns the current daemon status and job history.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		LockFilePath: d.lock.Path(),
		LedgerPath:   d.store.Path(),
		Jobs:         d.scheduler.Stats(),
	}
}

// Scheduler exposes the underlying job scheduler.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}
