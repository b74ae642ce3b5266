package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"versereel/internal/config"
	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/selector"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// Manager coordinates selection, stage execution and publishing.
type Manager struct {
	cfg         *config.Config
	store       *ledger.Store
	selector    *selector.Selector
	stages      StageSet
	housekeeper *storage.Housekeeper
	notifier    notifications.Service
	logger      *slog.Logger
	now         func() time.Time

	gpu        *stage.Slot
	scratchDir string

	mu      sync.RWMutex
	version string

	processErrors atomic.Int64
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the clock used for daily stats and upload timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithHousekeeper enables the post-upload archive and cleanup policy.
func WithHousekeeper(h *storage.Housekeeper) ManagerOption {
	return func(m *Manager) {
		m.housekeeper = h
	}
}

// WithNotifier publishes batch and upload events.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithScratchDir sets the parent of per-stage scratch directories.
func WithScratchDir(dir string) ManagerOption {
	return func(m *Manager) {
		if dir != "" {
			m.scratchDir = dir
		}
	}
}

// WithGPUSlot overrides the slot guarding GPU alignment runs.
func WithGPUSlot(slot *stage.Slot) ManagerOption {
	return func(m *Manager) {
		m.gpu = slot
	}
}

// NewManager constructs a workflow manager. The selector may be nil for
// callers that only retry or upload existing items.
func NewManager(cfg *config.Config, store *ledger.Store, sel *selector.Selector, stages StageSet, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:        cfg,
		store:      store,
		selector:   sel,
		stages:     stages,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		now:        time.Now,
		scratchDir: cfg.ScratchDir(),
		version:    cfg.Passages.Version,
	}
	if cfg.Alignment.CUDAEnabled {
		m.gpu = stage.NewSlot(1)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ProcessErrors returns the number of stage failures seen since start.
func (m *Manager) ProcessErrors() int64 {
	return m.processErrors.Load()
}

// Store exposes the ledger the manager writes to.
func (m *Manager) Store() *ledger.Store {
	return m.store
}

func (m *Manager) passageVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

func (m *Manager) recordStat(ctx context.Context, logger *slog.Logger, delta ledger.StatDelta) {
	if err := m.store.AccumulateStat(ctx, m.now(), delta); err != nil {
		logger.Warn("failed to record daily stats",
			logging.Error(err),
			logging.Event("stats_write_failed"),
		)
	}
}

func setStageLogger(handler any, logger *slog.Logger) {
	if aware, ok := handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
}

func (m *Manager) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "event not delivered"),
		)
	}
}
