package workflow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"versereel/internal/logging"
	"versereel/internal/stage"
)

// healthCheckTimeout bounds each stage's readiness check.
const healthCheckTimeout = 30 * time.Second

// Meta keys describing the loaded passage catalog.
const (
	MetaPassagesSource   = "passages_source"
	MetaPassagesVersion  = "passages_version"
	MetaPassagesCount    = "passages_count"
	MetaPassagesLoadedAt = "passages_loaded_at"
)

// RecordSource stores catalog readiness metadata in the ledger and makes the
// catalog version available to upload descriptions.
func (m *Manager) RecordSource(ctx context.Context, source PassageSource) error {
	version := source.Version()
	if version == "" {
		version = m.cfg.Passages.Version
	}
	values := []struct{ key, value string }{
		{MetaPassagesSource, source.Source()},
		{MetaPassagesVersion, version},
		{MetaPassagesCount, strconv.Itoa(source.VerseCount())},
		{MetaPassagesLoadedAt, m.now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range values {
		if err := m.store.SetMeta(ctx, kv.key, kv.value); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.version = version
	m.mu.Unlock()

	m.logger.Info("passage catalog loaded",
		logging.Event("catalog_loaded"),
		logging.String("source", source.Source()),
		logging.String("version", version),
		logging.Int("verses", source.VerseCount()),
	)
	return nil
}

// HealthChecks reports readiness for every configured stage that supports it.
// Missing required stages are reported as not ready; the prober, and the
// subtitler when subtitles are disabled, are optional.
func (m *Manager) HealthChecks(ctx context.Context) []stage.Health {
	var results []stage.Health
	for _, s := range m.stages.named() {
		if s.handler == nil {
			if s.optional || (s.name == "subtitles" && m.cfg.Video.SkipSubtitles) {
				continue
			}
			results = append(results, stage.Unhealthy(s.name, "not configured"))
			continue
		}
		checker, ok := s.handler.(stage.HealthChecker)
		if !ok {
			results = append(results, stage.Healthy(s.name))
			continue
		}
		results = append(results, checkStage(ctx, s.name, checker))
	}
	return results
}

func checkStage(ctx context.Context, name string, checker stage.HealthChecker) stage.Health {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	health := checker.HealthCheck(checkCtx)
	if health.Name == "" {
		health.Name = name
	}
	if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
		return stage.Unhealthy(health.Name, "health check timed out")
	}
	return health
}
