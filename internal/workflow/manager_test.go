package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"versereel/internal/config"
	"versereel/internal/ledger"
	"versereel/internal/logging"
	"versereel/internal/notifications"
	"versereel/internal/selector"
	"versereel/internal/services"
	"versereel/internal/stage"
	"versereel/internal/storage"
	"versereel/internal/testsupport"
	"versereel/internal/workflow"
)

type harness struct {
	cfg      *config.Config
	store    *ledger.Store
	fakes    *testsupport.FakeStages
	notifier *testsupport.RecordingNotifier
	manager  *workflow.Manager
}

type harnessOption func(*config.Config, *workflow.StageSet, *testsupport.FakeStages)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithMode(string(ledger.ModeSequential)),
		testsupport.WithSelection(1, 50, 60),
	)
	store := testsupport.MustOpenStore(t, cfg)
	sel := selector.New(testsupport.NewCatalog(t), store, selector.ConstraintsFromConfig(cfg.Selection))

	fakes := testsupport.NewFakeStages(t)
	stages := workflow.StageSet{
		Background: fakes.Background(),
		Speech:     fakes.Speech(),
		Aligner:    fakes.Aligner(),
		Subtitler:  fakes.Subtitler(),
		Composer:   fakes.Composer(),
		Uploader:   fakes.Uploader(),
	}
	for _, opt := range opts {
		opt(cfg, &stages, fakes)
	}

	hk := storage.NewHousekeeper(storage.NewLayout(cfg.Paths.OutputDir), cfg.Storage, logging.NewNop())
	notifier := testsupport.NewRecordingNotifier()
	mgr := workflow.NewManager(cfg, store, sel, stages, logging.NewNop(),
		workflow.WithHousekeeper(hk),
		workflow.WithNotifier(notifier),
	)
	return &harness{cfg: cfg, store: store, fakes: fakes, notifier: notifier, manager: mgr}
}

func withProber(_ *config.Config, s *workflow.StageSet, fakes *testsupport.FakeStages) {
	s.Prober = fakes.Prober()
}

func (h *harness) item(t *testing.T, key string) *ledger.WorkItem {
	t.Helper()
	item, err := h.store.GetByKey(context.Background(), key)
	if err != nil {
		t.Fatalf("GetByKey(%s): %v", key, err)
	}
	if item == nil {
		t.Fatalf("work item %s missing", key)
	}
	return item
}

func (h *harness) todayStats(t *testing.T) ledger.DailyStat {
	t.Helper()
	stats, err := h.store.RecentStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one stats row, got %d", len(stats))
	}
	return stats[0]
}

func TestGenerateBatchIsolatesStageFailure(t *testing.T) {
	h := newHarness(t)
	h.fakes.FailOnCall(testsupport.FakeSpeech, 2, nil)

	summary := h.manager.GenerateBatch(context.Background(), 3)
	if summary.Requested != 3 || summary.Successful != 2 || summary.Failed != 1 || summary.Skipped != 0 || summary.Exhausted {
		t.Fatalf("unexpected summary %+v", summary)
	}

	for _, key := range []string{"TEST_1_1", "TEST_1_3"} {
		item := h.item(t, key)
		if item.Status != ledger.StatusReady {
			t.Fatalf("%s status = %s, want ready", key, item.Status)
		}
		if item.FinalPath == "" || item.SubtitlePath == "" || item.TimestampsPath == "" {
			t.Fatalf("%s missing artifacts: %+v", key, item)
		}
	}
	failed := h.item(t, "TEST_1_2")
	if failed.Status != ledger.StatusFailed || failed.RetryCount != 1 {
		t.Fatalf("expected failed item with retry_count 1, got %s/%d", failed.Status, failed.RetryCount)
	}
	if !strings.Contains(failed.ErrorMessage, "speech") {
		t.Fatalf("expected error message to name the stage, got %q", failed.ErrorMessage)
	}
	if failed.TimestampsPath != "" || failed.FinalPath != "" {
		t.Fatalf("later stages must not run after a failure: %+v", failed)
	}

	if got := h.fakes.Calls(testsupport.FakeComposition); len(got) != 2 || got[0] != "TEST_1_1" || got[1] != "TEST_1_3" {
		t.Fatalf("unexpected composition calls %v", got)
	}
	if h.manager.ProcessErrors() != 1 {
		t.Fatalf("expected one process error, got %d", h.manager.ProcessErrors())
	}
	stats := h.todayStats(t)
	if stats.ItemsGenerated != 2 || stats.Errors != 1 {
		t.Fatalf("unexpected daily stats %+v", stats)
	}
}

func TestGenerateBatchStopsWhenSelectionExhausted(t *testing.T) {
	h := newHarness(t)

	summary := h.manager.GenerateBatch(context.Background(), 5)
	if summary.Successful != 3 || !summary.Exhausted || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	_, err := h.manager.Generate(context.Background(), nil)
	if !errors.Is(err, services.ErrSelectionExhausted) {
		t.Fatalf("expected ErrSelectionExhausted, got %v", err)
	}
	counts, err := h.store.CountsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts[ledger.StatusReady] != 3 {
		t.Fatalf("exhaustion must not add items, counts=%v", counts)
	}

	events := h.notifier.Events(notifications.EventBatchCompleted)
	if len(events) != 1 {
		t.Fatalf("expected one batch notification, got %d", len(events))
	}
	if events[0].Payload["successful"] != 3 || events[0].Payload["exhausted"] != true {
		t.Fatalf("unexpected batch payload %v", events[0].Payload)
	}
}

func TestGenerateDuplicateCandidateIsSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	candidate := &selector.Candidate{
		Position:  ledger.Position{Collection: "TEST", Subunit: 1, Item: 1},
		Text:      "In the beginning was the word",
		WordCount: 6,
		Duration:  2.4,
		Mode:      ledger.ModeRandom,
	}
	if _, err := h.manager.Generate(ctx, candidate); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if _, err := h.manager.Generate(ctx, candidate); !errors.Is(err, services.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if got := h.fakes.Calls(testsupport.FakeBackground); len(got) != 1 {
		t.Fatalf("duplicate must not run stages, background calls=%v", got)
	}
}

func TestGenerateReconcilesMeasuredDuration(t *testing.T) {
	h := newHarness(t, withProber)
	h.fakes.SetMeasuredDuration(3.7)

	item, err := h.manager.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if item.Duration != 3.7 {
		t.Fatalf("expected measured duration 3.7, got %v", item.Duration)
	}
	stored := h.item(t, item.NaturalKey)
	if stored.Duration != 3.7 {
		t.Fatalf("expected stored duration 3.7, got %v", stored.Duration)
	}
	if stats := h.todayStats(t); stats.TotalDuration != 3.7 {
		t.Fatalf("expected stats to use measured duration, got %+v", stats)
	}
}

func TestGenerateProbeFailureFailsSpeechStage(t *testing.T) {
	h := newHarness(t, withProber)

	item, err := h.manager.Generate(context.Background(), nil)
	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected stage failure, got %v", err)
	}
	if item.Status != ledger.StatusFailed || item.AudioPath != "" {
		t.Fatalf("expected failed item without audio, got %+v", item)
	}
	if got := h.fakes.Calls(testsupport.FakeAlignment); len(got) != 0 {
		t.Fatalf("alignment should not run, calls=%v", got)
	}
}

func TestGenerateSkipsSubtitlesWhenDisabled(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		cfg.Video.SkipSubtitles = true
		s.Subtitler = nil
	})

	item, err := h.manager.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if item.Status != ledger.StatusReady || item.SubtitlePath != "" {
		t.Fatalf("expected ready item without subtitles, got %+v", item)
	}
	if got := h.fakes.Calls(testsupport.FakeAlignment); len(got) != 1 {
		t.Fatalf("alignment still runs without subtitles, calls=%v", got)
	}
}

func TestGenerateMissingStageFailsItem(t *testing.T) {
	h := newHarness(t, func(_ *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		s.Composer = nil
	})

	item, err := h.manager.Generate(context.Background(), nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if item.Status != ledger.StatusFailed {
		t.Fatalf("expected failed item, got %s", item.Status)
	}
}

func TestRetryFailedRerunsPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fakes.FailOnCall(testsupport.FakeComposition, 1, nil)

	if _, err := h.manager.Generate(ctx, nil); err == nil {
		t.Fatal("expected first generation to fail")
	}
	summary, err := h.manager.RetryFailed(ctx, 3)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if summary != (workflow.RetrySummary{Retried: 1, Successful: 1}) {
		t.Fatalf("unexpected retry summary %+v", summary)
	}
	item := h.item(t, "TEST_1_1")
	if item.Status != ledger.StatusReady || item.RetryCount != 1 || item.ErrorMessage != "" {
		t.Fatalf("unexpected retried item %+v", item)
	}
	if got := h.fakes.Calls(testsupport.FakeBackground); len(got) != 2 || got[1] != "TEST_1_1" {
		t.Fatalf("retry must reuse the stored item, background calls=%v", got)
	}
}

func TestRecoverInterruptedHandsOrphanedItemsToRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	// Claimed but never started, as after a crash between claim and processing.
	orphan := testsupport.NewItem(t, h.store, "TEST", 1, 1, "In the beginning was the word")

	recovered, err := h.manager.RecoverInterrupted(ctx)
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected one recovered item, got %d", recovered)
	}
	summary, err := h.manager.RetryFailed(ctx, 3)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if summary != (workflow.RetrySummary{Retried: 1, Successful: 1}) {
		t.Fatalf("unexpected retry summary %+v", summary)
	}
	if got := h.item(t, orphan.NaturalKey); got.Status != ledger.StatusReady || got.RetryCount != 1 {
		t.Fatalf("expected orphan rendered on retry, got %s/%d", got.Status, got.RetryCount)
	}
}

func TestRetryFailedIgnoresItemsAtMaxRetries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, h.store, "TEST", 1, 2, "The light shines in the darkness")
	for i := 0; i < 3; i++ {
		if i > 0 {
			if err := h.store.ResetForRetry(ctx, item.ID); err != nil {
				t.Fatalf("ResetForRetry: %v", err)
			}
		}
		if err := h.store.MarkFailed(ctx, item.ID, "boom"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
	}

	summary, err := h.manager.RetryFailed(ctx, 3)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if summary.Retried != 0 {
		t.Fatalf("expected no retries, got %+v", summary)
	}
	if got := h.item(t, item.NaturalKey); got.Status != ledger.StatusFailed || got.RetryCount != 3 {
		t.Fatalf("item should stay failed at 3 retries, got %s/%d", got.Status, got.RetryCount)
	}
}

func TestUploadRejectsUnknownAndUnreadyItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.manager.Upload(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	pending := testsupport.NewItem(t, h.store, "TEST", 1, 1, "In the beginning was the word")
	if _, err := h.manager.Upload(ctx, pending.ID); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(h.fakes.Uploads()) != 0 {
		t.Fatal("uploader must not be called")
	}
}

func TestUploadPublishesAndArchives(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	uploaded, err := h.manager.Upload(ctx, generated.ID)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if uploaded.Status != ledger.StatusUploaded || uploaded.RemoteID != "remote-1" {
		t.Fatalf("unexpected uploaded item %+v", uploaded)
	}

	reqs := h.fakes.Uploads()
	if len(reqs) != 1 {
		t.Fatalf("expected one upload, got %d", len(reqs))
	}
	if !strings.HasPrefix(reqs[0].Metadata.Title, "Test 1:1") {
		t.Fatalf("unexpected title %q", reqs[0].Metadata.Title)
	}
	if !strings.Contains(reqs[0].Metadata.Description, "("+h.cfg.Passages.Version+")") {
		t.Fatalf("description should carry the version, got %q", reqs[0].Metadata.Description)
	}

	stored := h.item(t, generated.NaturalKey)
	wantFinal := filepath.Join(h.cfg.Paths.OutputDir, "uploaded", "TEST_1_1.mp4")
	if stored.FinalPath != wantFinal || !testsupport.Exists(t, wantFinal) {
		t.Fatalf("expected archived final at %s, got %q", wantFinal, stored.FinalPath)
	}
	if len(stored.IntermediatePaths()) != 0 {
		t.Fatalf("expected intermediates cleared, got %v", stored.IntermediatePaths())
	}
	if testsupport.Exists(t, generated.AudioPath) {
		t.Fatalf("expected intermediate %s removed", generated.AudioPath)
	}
	if stats := h.todayStats(t); stats.ItemsUploaded != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	events := h.notifier.Events(notifications.EventUploadCompleted)
	if len(events) != 1 || events[0].Payload["reference"] != "Test 1:1" {
		t.Fatalf("unexpected upload notifications %+v", events)
	}
}

func TestNotificationFailureDoesNotFailUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	h.notifier.FailWith(errors.New("ntfy unreachable"))

	if _, err := h.manager.Upload(ctx, generated.ID); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if got := h.item(t, generated.NaturalKey).Status; got != ledger.StatusUploaded {
		t.Fatalf("expected uploaded, got %s", got)
	}
}

func TestUploadFailureKeepsItemReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	h.fakes.FailOnCall(testsupport.FakeUpload, 1, nil)

	if _, err := h.manager.Upload(ctx, generated.ID); !errors.Is(err, testsupport.ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if item := h.item(t, generated.NaturalKey); item.Status != ledger.StatusReady {
		t.Fatalf("expected item to stay ready, got %s", item.Status)
	}
	if stats := h.todayStats(t); stats.Errors != 1 || stats.ItemsUploaded != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

// ledgerLosingUploader publishes, then closes the ledger before the upload can
// be recorded.
type ledgerLosingUploader struct {
	stage.Uploader
	store *ledger.Store
}

func (u *ledgerLosingUploader) Upload(ctx context.Context, req stage.UploadRequest) (stage.UploadResult, error) {
	result, err := u.Uploader.Upload(ctx, req)
	u.store.Close()
	return result, err
}

func TestUnrecordedUploadReportsRemoteID(t *testing.T) {
	uploader := &ledgerLosingUploader{}
	h := newHarness(t, func(_ *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		uploader.Uploader = s.Uploader
		s.Uploader = uploader
	})
	uploader.store = h.store
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = h.manager.Upload(ctx, generated.ID)
	if err == nil {
		t.Fatal("expected error when the upload cannot be recorded")
	}
	if !strings.Contains(err.Error(), "remote-1") {
		t.Fatalf("error must name the published video, got %v", err)
	}
	if len(h.fakes.Uploads()) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(h.fakes.Uploads()))
	}
	if got := h.notifier.Events(notifications.EventUploadCompleted); len(got) != 0 {
		t.Fatalf("unrecorded upload must not notify, got %+v", got)
	}
}

func TestUploadWithoutUploaderIsConfigurationError(t *testing.T) {
	h := newHarness(t, func(_ *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		s.Uploader = nil
	})
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := h.manager.Upload(ctx, generated.ID); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestUploadNextPicksOldestReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.manager.UploadNext(ctx)
	if err != nil || item != nil {
		t.Fatalf("expected nothing to upload, got %v, %v", item, err)
	}

	if summary := h.manager.GenerateBatch(ctx, 2); summary.Successful != 2 {
		t.Fatalf("unexpected batch %+v", summary)
	}
	item, err = h.manager.UploadNext(ctx)
	if err != nil {
		t.Fatalf("UploadNext: %v", err)
	}
	if item == nil || item.NaturalKey != "TEST_1_1" || item.Status != ledger.StatusUploaded {
		t.Fatalf("expected TEST_1_1 uploaded, got %+v", item)
	}
}

func TestUploadNextLeavesScheduledItemsForTheirSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	now := time.Now()
	if _, err := h.manager.ScheduleUpload(ctx, generated.ID, now.Add(48*time.Hour)); err != nil {
		t.Fatalf("ScheduleUpload: %v", err)
	}

	summary, err := h.manager.ProcessDueUploads(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDueUploads: %v", err)
	}
	if summary.Due != 0 {
		t.Fatalf("expected nothing due, got %+v", summary)
	}
	item, err := h.manager.UploadNext(ctx)
	if err != nil || item != nil {
		t.Fatalf("deferred item must wait for its slot, got %+v, %v", item, err)
	}
	if len(h.fakes.Uploads()) != 0 {
		t.Fatalf("unexpected uploads %+v", h.fakes.Uploads())
	}
	if got := h.item(t, generated.NaturalKey); got.Status != ledger.StatusReady {
		t.Fatalf("expected item to stay ready, got %s", got.Status)
	}
}

func TestProcessDueUploads(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if summary := h.manager.GenerateBatch(ctx, 3); summary.Successful != 3 {
		t.Fatalf("unexpected batch %+v", summary)
	}
	now := time.Now()
	first := h.item(t, "TEST_1_1")
	second := h.item(t, "TEST_1_2")
	third := h.item(t, "TEST_1_3")
	for _, id := range []int64{first.ID, second.ID} {
		if _, err := h.manager.ScheduleUpload(ctx, id, now.Add(-time.Minute)); err != nil {
			t.Fatalf("ScheduleUpload(%d): %v", id, err)
		}
	}
	if _, err := h.manager.ScheduleUpload(ctx, third.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("ScheduleUpload future: %v", err)
	}
	h.fakes.FailOnCall(testsupport.FakeUpload, 2, nil)

	summary, err := h.manager.ProcessDueUploads(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDueUploads: %v", err)
	}
	if summary.Due != 2 || summary.Uploaded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected schedule summary %+v", summary)
	}
	if got := h.item(t, "TEST_1_1"); got.Status != ledger.StatusUploaded {
		t.Fatalf("expected TEST_1_1 uploaded, got %s", got.Status)
	}
	if got := h.item(t, "TEST_1_3"); got.Status != ledger.StatusReady {
		t.Fatalf("future entry must not upload, got %s", got.Status)
	}

	entries, err := h.store.ListSchedule(ctx)
	if err != nil {
		t.Fatalf("ListSchedule: %v", err)
	}
	byItem := make(map[int64]*ledger.UploadScheduleEntry, len(entries))
	for _, e := range entries {
		byItem[e.WorkItemID] = e
	}
	if byItem[first.ID].Status != ledger.ScheduleUploaded {
		t.Fatalf("expected first entry uploaded, got %+v", byItem[first.ID])
	}
	// Below max_retries the failed entry stays pending for the next window.
	if e := byItem[second.ID]; e.Status != ledger.SchedulePending || e.RetryCount != 1 || e.ErrorMessage == "" {
		t.Fatalf("unexpected failed entry %+v", e)
	}
}

func TestProcessDueUploadsMarksEntryFailedAtMaxRetries(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config, _ *workflow.StageSet, _ *testsupport.FakeStages) {
		cfg.Retry.MaxRetries = 1
	})
	ctx := context.Background()
	generated, err := h.manager.Generate(ctx, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	entry, err := h.manager.ScheduleUpload(ctx, generated.ID, time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("ScheduleUpload: %v", err)
	}
	h.fakes.FailOnCall(testsupport.FakeUpload, 1, nil)

	if _, err := h.manager.ProcessDueUploads(ctx, time.Now()); err != nil {
		t.Fatalf("ProcessDueUploads: %v", err)
	}
	entries, err := h.store.ListSchedule(ctx, ledger.ScheduleFailed)
	if err != nil {
		t.Fatalf("ListSchedule: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID || entries[0].RetryCount != 1 {
		t.Fatalf("expected entry failed, got %+v", entries)
	}
}

func TestScheduleUploadRequiresReadyItem(t *testing.T) {
	h := newHarness(t)
	pending := testsupport.NewItem(t, h.store, "TEST", 1, 1, "In the beginning was the word")
	if _, err := h.manager.ScheduleUpload(context.Background(), pending.ID, time.Now()); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestRecordSourceStoresMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.manager.RecordSource(ctx, testsupport.NewCatalog(t)); err != nil {
		t.Fatalf("RecordSource: %v", err)
	}
	for key, want := range map[string]string{
		workflow.MetaPassagesSource:  "inline",
		workflow.MetaPassagesVersion: "TEST",
		workflow.MetaPassagesCount:   "3",
	} {
		got, ok, err := h.store.GetMeta(ctx, key)
		if err != nil || !ok || got != want {
			t.Fatalf("meta %s = %q (ok=%v err=%v), want %q", key, got, ok, err, want)
		}
	}
	if _, ok, _ := h.store.GetMeta(ctx, workflow.MetaPassagesLoadedAt); !ok {
		t.Fatal("expected load timestamp")
	}
}

func TestHealthChecksReportUnconfiguredStages(t *testing.T) {
	h := newHarness(t, func(_ *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		s.Uploader = nil
	})
	results := h.manager.HealthChecks(context.Background())
	status := make(map[string]bool, len(results))
	for _, r := range results {
		status[r.Name] = r.Ready
	}
	if ready, ok := status["upload"]; !ok || ready {
		t.Fatalf("expected unready upload stage, got %v", results)
	}
	if !status["background"] || !status["composition"] {
		t.Fatalf("expected fake stages ready, got %v", results)
	}
}

// deadlineComposer reports ready only when its check runs under a deadline.
type deadlineComposer struct {
	stage.Composer
}

func (deadlineComposer) HealthCheck(ctx context.Context) stage.Health {
	if _, ok := ctx.Deadline(); !ok {
		return stage.Unhealthy("composition", "unbounded health check")
	}
	return stage.Health{Ready: true}
}

func TestHealthChecksBoundEachCheck(t *testing.T) {
	h := newHarness(t, func(_ *config.Config, s *workflow.StageSet, _ *testsupport.FakeStages) {
		s.Composer = deadlineComposer{s.Composer}
	})
	for _, r := range h.manager.HealthChecks(context.Background()) {
		if r.Name == "composition" {
			if !r.Ready {
				t.Fatalf("expected bounded check, got %+v", r)
			}
			return
		}
	}
	t.Fatal("composition health missing")
}
