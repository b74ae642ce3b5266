package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"versereel/internal/config"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// Renderer is the subtitle stage. It turns word timings into an ASS script
// that composition burns into the video.
type Renderer struct {
	layout storage.Layout
	style  Style
	window int
}

// NewRenderer builds the subtitle stage from caption and video settings.
func NewRenderer(layout storage.Layout, cfg config.Subtitles, video config.Video) *Renderer {
	return &Renderer{
		layout: layout,
		style: Style{
			Font:           cfg.Font,
			FontSize:       cfg.FontSize,
			PrimaryColor:   cfg.PrimaryColor,
			HighlightColor: cfg.HighlightColor,
			OutlineWidth:   cfg.OutlineWidth,
			MarginV:        cfg.MarginV,
			PlayResX:       video.Width,
			PlayResY:       video.Height,
		},
		window: cfg.WindowWords,
	}
}

// Render implements stage.Subtitler.
func (r *Renderer) Render(ctx context.Context, req stage.SubtitleRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timings, err := stage.LoadWordTimings(req.AlignmentPath)
	if err != nil {
		return "", err
	}
	cues := BuildCues(timings, r.window, req.Duration)
	if len(cues) == 0 {
		return "", errors.New("subtitles: no timed words to caption")
	}

	dst := r.layout.Path(storage.KindSubtitles, req.Key, ".ass")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("subtitles: %w", err)
	}
	if err := os.WriteFile(dst, []byte(FormatASS(r.style, cues)), 0o644); err != nil {
		return "", fmt.Errorf("subtitles: write: %w", err)
	}
	return dst, nil
}
