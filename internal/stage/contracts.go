package stage

import (
	"context"
	"log/slog"
)

// BackgroundRequest describes the backdrop for one passage.
type BackgroundRequest struct {
	Key      string
	Text     string
	Duration float64
	// WorkDir is the leased scratch directory for intermediate output.
	WorkDir string
}

// Background renders a still or animated backdrop video.
type Background interface {
	Render(ctx context.Context, req BackgroundRequest) (string, error)
}

// SpeechRequest is the narration input.
type SpeechRequest struct {
	Key     string
	Text    string
	WorkDir string
}

// Speech synthesizes narration audio.
type Speech interface {
	Synthesize(ctx context.Context, req SpeechRequest) (string, error)
}

// AlignRequest pairs narration audio with its transcript.
type AlignRequest struct {
	Key       string
	AudioPath string
	Text      string
	WorkDir   string
}

// Aligner produces a word timings file (see LoadWordTimings).
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) (string, error)
}

// SubtitleRequest points at word timings to caption.
type SubtitleRequest struct {
	Key           string
	AlignmentPath string
	Duration      float64
}

// Subtitler renders a caption file from word timings.
type Subtitler interface {
	Render(ctx context.Context, req SubtitleRequest) (string, error)
}

// ComposeRequest lists the inputs of the final mux. SubtitlePath may be empty.
type ComposeRequest struct {
	Key            string
	BackgroundPath string
	AudioPath      string
	SubtitlePath   string
	Duration       float64
	WorkDir        string
}

// Composer muxes the final video.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

// UploadMetadata is the rendered publishing metadata.
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	MadeForKids bool
}

// UploadRequest is a finished video and its metadata.
type UploadRequest struct {
	Path     string
	Metadata UploadMetadata
}

// UploadResult identifies the published video.
type UploadResult struct {
	RemoteID  string
	RemoteURL string
}

// Uploader publishes a finished video.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
}

// DurationProber measures a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// LoggerAware is implemented by stages that accept a per-run logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
