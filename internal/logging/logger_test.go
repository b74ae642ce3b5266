package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"versereel/internal/config"
	"versereel/internal/logging"
	"versereel/internal/services"
)

func TestNewFromConfigWritesDailyJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello", logging.String("reference", "John 3:16"))

	data, err := os.ReadFile(logging.DailyLogPath(cfg.Paths.LogDir, time.Now()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.SplitN(data, []byte("\n"), 2)[0], &entry); err != nil {
		t.Fatalf("decode json line: %v (%s)", err, data)
	}
	if entry["msg"] != "hello" || entry["reference"] != "John 3:16" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestJSONLoggerWritesDurationsInSeconds(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("stage completed", logging.Duration("stage_duration", 1500*time.Millisecond))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode json line: %v (%s)", err, data)
	}
	if entry["stage_duration"] != 1.5 {
		t.Fatalf("expected 1.5 seconds, got %v", entry["stage_duration"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("generated", logging.String(logging.FieldComponent, "workflow"), logging.Int64(logging.FieldItemID, 7), logging.String("status", "ready"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	for _, want := range []string{"INFO [workflow] Item #7 - generated", "- Status: ready"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestConsoleLoggerHidesDebugOnlyFieldsAtInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("stage completed", logging.String("audio_path", "/tmp/a.wav"))
	content, _ := os.ReadFile(logPath)
	if strings.Contains(string(content), "/tmp/a.wav") || !strings.Contains(string(content), "1 more hidden") {
		t.Fatalf("expected path hidden at info level, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, 123)
	ctx = services.WithStage(ctx, "alignment")
	ctx = services.WithRunID(ctx, "req-xyz")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldItemID] != float64(123) {
		t.Fatalf("item_id = %v", entry[logging.FieldItemID])
	}
	if entry[logging.FieldStage] != "alignment" || entry[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("unexpected fields: %v", entry)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "archive failed", "archive_failed", logging.String(logging.FieldErrorHint, "check disk"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "archive_failed" || entry[logging.FieldErrorHint] != "check disk" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact, got %v", entry)
	}
}

func TestPruneLogsKeepsRecentAndCurrent(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "versereel-20260101.log")
	recent := filepath.Join(dir, "versereel-20260309.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, recent, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := now.AddDate(0, 0, -30)
	for _, path := range []string{old, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	if removed := logging.PruneLogs(logging.NewNop(), dir, 14, now); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{recent, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
