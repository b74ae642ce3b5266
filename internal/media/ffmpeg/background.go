package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"versereel/internal/config"
	"versereel/internal/fileutil"
	"versereel/internal/logging"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// backgroundPadding extends the backdrop past the estimate; composition
// loops and trims it to the measured narration anyway.
const backgroundPadding = 1.0

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// BackgroundRenderer renders a vertical backdrop clip from a theme image or
// a solid theme color.
type BackgroundRenderer struct {
	tool   *Tool
	layout storage.Layout
	cfg    config.Background
	video  config.Video
	logger *slog.Logger
}

// NewBackgroundRenderer constructs the background stage.
func NewBackgroundRenderer(tool *Tool, layout storage.Layout, cfg config.Background, video config.Video, logger *slog.Logger) *BackgroundRenderer {
	return &BackgroundRenderer{
		tool:   tool,
		layout: layout,
		cfg:    cfg,
		video:  video,
		logger: logging.NewComponentLogger(logger, "background"),
	}
}

// SetLogger implements stage.LoggerAware.
func (b *BackgroundRenderer) SetLogger(logger *slog.Logger) {
	b.logger = logging.NewComponentLogger(logger, "background")
}

// Render implements stage.Background.
func (b *BackgroundRenderer) Render(ctx context.Context, req stage.BackgroundRequest) (string, error) {
	if req.Duration <= 0 {
		return "", fmt.Errorf("background: invalid duration %.2f", req.Duration)
	}
	dst := b.layout.Path(storage.KindBackgrounds, req.Key, ".mp4")
	tmp := workPath(req.WorkDir, dst)
	if err := ensureParent(tmp); err != nil {
		return "", fmt.Errorf("background: %w", err)
	}

	theme := DetectTheme(req.Text)
	args, source := b.inputArgs(theme, req.Duration+backgroundPadding)
	args = append(args,
		"-t", secondsArg(req.Duration+backgroundPadding),
		"-c:v", b.video.Codec,
		"-preset", b.video.Preset,
		"-crf", fmt.Sprint(b.video.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		"-f", "mp4",
		tmp,
	)
	b.logger.Debug("rendering background",
		logging.String("theme", theme),
		logging.String("source", source),
	)
	if err := b.tool.Run(ctx, "background", args...); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := fileutil.MoveFile(tmp, dst); err != nil {
		return "", fmt.Errorf("background: publish: %w", err)
	}
	return dst, nil
}

// inputArgs returns the input and filter arguments plus a description of the
// chosen source.
func (b *BackgroundRenderer) inputArgs(theme string, seconds float64) ([]string, string) {
	size := fmt.Sprintf("%dx%d", b.video.Width, b.video.Height)
	if image := b.themeImage(theme); image != "" {
		filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			b.video.Width, b.video.Height, b.video.Width, b.video.Height)
		if b.cfg.Zoom {
			frames := int(seconds*float64(b.video.FPS)) + 1
			filter += fmt.Sprintf(",zoompan=z='min(zoom+0.0008,1.15)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%s:fps=%d",
				frames, size, b.video.FPS)
		}
		return []string{"-loop", "1", "-framerate", fmt.Sprint(b.video.FPS), "-i", image, "-vf", filter}, image
	}
	color := b.themeColor(theme)
	source := fmt.Sprintf("color=c=%s:s=%s:r=%d", color, size, b.video.FPS)
	return []string{"-f", "lavfi", "-i", source}, color
}

func (b *BackgroundRenderer) themeImage(theme string) string {
	if b.cfg.ImageDir == "" {
		return ""
	}
	for _, name := range []string{themeToken(theme), DefaultTheme} {
		for _, ext := range imageExtensions {
			candidate := filepath.Join(b.cfg.ImageDir, name+ext)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				b.logger.Debug("theme image unreadable", logging.String("path", candidate), logging.Error(err))
			}
		}
	}
	return ""
}

func (b *BackgroundRenderer) themeColor(theme string) string {
	if color, ok := b.cfg.Colors[theme]; ok && color != "" {
		return color
	}
	if color, ok := b.cfg.Colors[DefaultTheme]; ok && color != "" {
		return color
	}
	return "black"
}

// HealthCheck implements stage.HealthChecker.
func (b *BackgroundRenderer) HealthCheck(ctx context.Context) stage.Health {
	health := b.tool.HealthCheck(ctx)
	health.Name = "background"
	return health
}
