package workflow

import "versereel/internal/stage"

// StageSet bundles the concrete stage implementations the manager runs.
// Subtitler may be nil when subtitles are disabled; Prober may be nil to skip
// duration reconciliation; Uploader may be nil when publishing is not
// configured.
type StageSet struct {
	Background stage.Background
	Speech     stage.Speech
	Aligner    stage.Aligner
	Subtitler  stage.Subtitler
	Composer   stage.Composer
	Uploader   stage.Uploader
	Prober     stage.DurationProber
}

func (s StageSet) named() []namedStage {
	return []namedStage{
		{name: "background", handler: s.Background},
		{name: "speech", handler: s.Speech},
		{name: "alignment", handler: s.Aligner},
		{name: "subtitles", handler: s.Subtitler},
		{name: "composition", handler: s.Composer},
		{name: "upload", handler: s.Uploader},
		{name: "ffprobe", handler: s.Prober, optional: true},
	}
}

type namedStage struct {
	name     string
	handler  any
	optional bool
}

// BatchSummary reports a GenerateBatch run.
type BatchSummary struct {
	Requested  int
	Successful int
	Failed     int
	Skipped    int
	// Exhausted is set when the selector ran out of candidates and the batch
	// stopped early.
	Exhausted bool
}

// RetrySummary reports a RetryFailed run.
type RetrySummary struct {
	Retried     int
	Successful  int
	StillFailed int
}

// ScheduleSummary reports a ProcessDueUploads run.
type ScheduleSummary struct {
	Due       int
	Uploaded  int
	Failed    int
	Cancelled bool
}

// PassageSource describes the loaded passage catalog.
type PassageSource interface {
	Source() string
	Version() string
	VerseCount() int
}
