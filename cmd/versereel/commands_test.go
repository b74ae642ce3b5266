package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"versereel/internal/config"
	"versereel/internal/daemon"
	"versereel/internal/ledger"
	"versereel/internal/services"
	"versereel/internal/testsupport"
)

func TestGenerateCommandReportsSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fakes.FailOnCall(testsupport.FakeComposition, 2, nil)

	out, err := env.run(t, "generate", "3")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	requireContains(t, out, "Successful")
	requireContains(t, out, "versereel retry")

	counts, err := env.store(t).CountsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts[ledger.StatusReady] != 2 || counts[ledger.StatusFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestGenerateCommandReportsExhaustion(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "generate", "5")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	requireContains(t, out, "Selection exhausted")
}

func TestGenerateCommandRejectsBadCount(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate", "zero"); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
	if _, err := env.run(t, "generate", "0"); err == nil {
		t.Fatal("expected error for zero count")
	}
}

func TestUploadCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "upload", "next")
	if err != nil {
		t.Fatalf("upload next failed: %v", err)
	}
	requireContains(t, out, "No ready items")

	if _, err := env.run(t, "generate", "2"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	out, err = env.run(t, "upload", "1")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	requireContains(t, out, "Uploaded TEST_1_1")

	out, err = env.run(t, "upload", "next")
	if err != nil {
		t.Fatalf("upload next failed: %v", err)
	}
	requireContains(t, out, "Uploaded TEST_1_2")

	if _, err := env.run(t, "upload", "999"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.run(t, "upload", "1"); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected ErrNotReady for uploaded item, got %v", err)
	}
}

func TestUploadAtSchedulesEntry(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	out, err := env.run(t, "upload", "1", "--at", "2030-01-01T09:00:00Z")
	if err != nil {
		t.Fatalf("upload --at failed: %v", err)
	}
	requireContains(t, out, "scheduled for upload at 2030-01-01T09:00:00Z")

	entries, err := env.store(t).ListSchedule(context.Background(), ledger.SchedulePending)
	if err != nil {
		t.Fatalf("ListSchedule: %v", err)
	}
	if len(entries) != 1 || entries[0].WorkItemID != 1 {
		t.Fatalf("unexpected schedule %+v", entries)
	}
	if len(env.fakes.Uploads()) != 0 {
		t.Fatal("scheduling must not upload")
	}
	if _, err := env.run(t, "upload", "1", "--at", "tomorrow"); err == nil {
		t.Fatal("expected --at parse error")
	}
}

func TestParseUploadTime(t *testing.T) {
	sc := config.Default().Scheduler
	sc.Timezone = "UTC"
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	got, err := parseUploadTime("09:30", sc, now)
	if err != nil {
		t.Fatalf("parseUploadTime: %v", err)
	}
	if want := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	got, err = parseUploadTime("18:00", sc, now)
	if err != nil {
		t.Fatalf("parseUploadTime: %v", err)
	}
	if want := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestModeCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "mode")
	if err != nil {
		t.Fatalf("mode failed: %v", err)
	}
	requireContains(t, out, "Selection mode: sequential")

	if _, err := env.run(t, "mode", "random"); err != nil {
		t.Fatalf("mode random failed: %v", err)
	}
	out, err = env.run(t, "mode")
	if err != nil {
		t.Fatalf("mode failed: %v", err)
	}
	requireContains(t, out, "Selection mode: random")

	if _, err := env.run(t, "mode", "shuffle"); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestStatsListAndProgress(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate", "2"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := env.run(t, "stats", "--days", "3")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	requireContains(t, out, "Last 3 days")
	requireContains(t, out, "Generated")
	requireContains(t, out, "ready")
	requireContains(t, out, "sequential")

	out, err = env.run(t, "list", "--status", "ready")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	requireContains(t, out, "Test 1:1")
	requireContains(t, out, "Test 1:2")

	out, err = env.run(t, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	requireContains(t, out, "No work items")

	if _, err := env.run(t, "list", "--status", "lost"); err == nil {
		t.Fatal("expected unknown status error")
	}

	out, err = env.run(t, "progress")
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	requireContains(t, out, "Test 1:2")
	requireContains(t, out, "Passages in catalog")
	requireContains(t, out, "66.7%")
}

func TestRetryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "retry")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	requireContains(t, out, "No failed items")

	env.fakes.FailOnCall(testsupport.FakeSpeech, 1, nil)
	if _, err := env.run(t, "generate"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	out, err = env.run(t, "retry", "--max", "2")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	requireContains(t, out, "Still failed")

	item, err := env.store(t).GetByKey(context.Background(), "TEST_1_1")
	if err != nil || item == nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if item.Status != ledger.StatusReady {
		t.Fatalf("expected retried item ready, got %s", item.Status)
	}
}

func TestPipelineCommandsRespectSchedulerLock(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	held := daemon.NewPipelineLock(env.cfg.LockPath())
	if err := held.TryAcquire(); err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	for _, args := range [][]string{{"generate"}, {"retry"}, {"upload", "1"}, {"upload", "next"}} {
		if _, err := env.run(t, args...); !errors.Is(err, daemon.ErrAlreadyRunning) {
			t.Fatalf("%v: expected ErrAlreadyRunning, got %v", args, err)
		}
	}
	if _, err := env.run(t, "upload", "1", "--at", "2030-01-01T09:00:00Z"); err != nil {
		t.Fatalf("upload --at should not need the lock: %v", err)
	}
	if _, err := env.run(t, "stats"); err != nil {
		t.Fatalf("stats should not need the lock: %v", err)
	}
	if len(env.fakes.Uploads()) != 0 {
		t.Fatal("nothing may upload while the lock is held")
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := env.run(t, "generate"); err != nil {
		t.Fatalf("generate after release failed: %v", err)
	}
}

func TestRetryCommandRecoversOrphanedItems(t *testing.T) {
	env := setupCLITestEnv(t)
	orphan := testsupport.NewItem(t, env.store(t), "TEST", 1, 1, "In the beginning was the word")

	out, err := env.run(t, "retry")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	requireContains(t, out, "Successful")

	item, err := env.store(t).GetByID(context.Background(), orphan.ID)
	if err != nil || item == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != ledger.StatusReady || item.RetryCount != 1 {
		t.Fatalf("expected orphaned item rendered, got %s/%d", item.Status, item.RetryCount)
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _ := env.run(t, "doctor")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "Ledger:")
	requireContains(t, out, "integrity ok")
	requireContains(t, out, "[WARN] missing")
	requireContains(t, out, "== Storage ==")
	requireContains(t, out, "Scratch:")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(testsupport.BaseDir(env.cfg), "new", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestInvalidConfigFailsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[selection]\ndefault_mode = \"shuffle\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := env.run(t, "stats"); err == nil {
		t.Fatal("expected config error")
	}
}

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify failed: %v", err)
	}
	requireContains(t, out, "Notifications disabled")

	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := f.WriteString("\n[notifications]\nntfy_topic = \"" + server.URL + "\"\n"); err != nil {
		t.Fatalf("append config: %v", err)
	}
	f.Close()

	out, err = env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify failed: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if title != "Versereel - Test" {
		t.Fatalf("unexpected notification title %q", title)
	}
}
