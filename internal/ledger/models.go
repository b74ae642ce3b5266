package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusUploaded   Status = "uploaded"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusReady,
	StatusUploaded,
	StatusFailed,
}

// transitions lists the statuses reachable through SetStatus. Failure and
// retry go through MarkFailed and ResetForRetry.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusReady},
	StatusReady:      {},
	StatusUploaded:   {},
	StatusFailed:     {},
}

// InterruptedMessage is recorded on items found mid-processing at startup.
const InterruptedMessage = "interrupted before completion"

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage identifies a pipeline stage whose artifact path is stored on the item.
type Stage string

const (
	StageBackground  Stage = "background"
	StageSpeech      Stage = "speech"
	StageAlignment   Stage = "alignment"
	StageSubtitles   Stage = "subtitles"
	StageComposition Stage = "composition"
)

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageBackground, StageSpeech, StageAlignment, StageSubtitles, StageComposition}
}

func (s Stage) column() (string, error) {
	switch s {
	case StageBackground:
		return "background_path", nil
	case StageSpeech:
		return "audio_path", nil
	case StageAlignment:
		return "timestamps_path", nil
	case StageSubtitles:
		return "subtitle_path", nil
	case StageComposition:
		return "final_path", nil
	default:
		return "", fmt.Errorf("unknown stage %q", string(s))
	}
}

// Mode is the selection mode stored on the cursor.
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeSequential Mode = "sequential"
)

// ParseMode validates a selection mode.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeRandom:
		return ModeRandom, true
	case ModeSequential:
		return ModeSequential, true
	default:
		return "", false
	}
}

// Position addresses one passage: collection (book), sub-unit (chapter) and
// item (verse).
type Position struct {
	Collection string
	Subunit    int
	Item       int
}

// IsZero reports whether the position has never been set.
func (p Position) IsZero() bool {
	return p.Collection == "" && p.Subunit == 0 && p.Item == 0
}

func (p Position) String() string {
	if p.IsZero() {
		return "(start)"
	}
	return fmt.Sprintf("%s %d:%d", p.Collection, p.Subunit, p.Item)
}

// NaturalKey returns the uniqueness key for the position, e.g. JOHN_3_16.
func (p Position) NaturalKey() string {
	return fmt.Sprintf("%s_%d_%d", p.Collection, p.Subunit, p.Item)
}

// Cursor is the singleton sequential-traversal state.
type Cursor struct {
	Position
	Mode      Mode
	UpdatedAt time.Time
}

// NewItem describes a passage accepted for production.
type NewItem struct {
	Position
	Text      string
	WordCount int
	Duration  float64
}

// WorkItem is one passage moving through the pipeline.
type WorkItem struct {
	ID             int64
	NaturalKey     string
	Position       Position
	Text           string
	WordCount      int
	Duration       float64
	BackgroundPath string
	AudioPath      string
	TimestampsPath string
	SubtitlePath   string
	FinalPath      string
	RemoteID       string
	RemoteURL      string
	UploadedAt     *time.Time
	Status         Status
	RetryCount     int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ArtifactPath returns the stored path for the given stage.
func (w *WorkItem) ArtifactPath(stage Stage) string {
	switch stage {
	case StageBackground:
		return w.BackgroundPath
	case StageSpeech:
		return w.AudioPath
	case StageAlignment:
		return w.TimestampsPath
	case StageSubtitles:
		return w.SubtitlePath
	case StageComposition:
		return w.FinalPath
	default:
		return ""
	}
}

// IntermediatePaths returns every artifact except the final video.
func (w *WorkItem) IntermediatePaths() []string {
	paths := make([]string, 0, 4)
	for _, p := range []string{w.BackgroundPath, w.AudioPath, w.TimestampsPath, w.SubtitlePath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// DailyStat aggregates activity for one calendar day.
type DailyStat struct {
	Date           string
	ItemsGenerated int
	ItemsUploaded  int
	TotalDuration  float64
	Errors         int
}

// StatDelta is added to a day's counters.
type StatDelta struct {
	Generated int
	Uploaded  int
	Duration  float64
	Errors    int
}

// ProcessingStats summarizes failure handling.
type ProcessingStats struct {
	Total             int
	Failed            int
	Retryable         int
	PermanentlyFailed int
}

// ScheduleStatus is the state of a deferred upload.
type ScheduleStatus string

const (
	SchedulePending  ScheduleStatus = "pending"
	ScheduleUploaded ScheduleStatus = "uploaded"
	ScheduleFailed   ScheduleStatus = "failed"
)

// UploadScheduleEntry is a deferred upload of a ready item.
type UploadScheduleEntry struct {
	ID           int64
	WorkItemID   int64
	ScheduledAt  time.Time
	Status       ScheduleStatus
	RetryCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
