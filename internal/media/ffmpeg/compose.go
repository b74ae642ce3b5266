package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"versereel/internal/config"
	"versereel/internal/fileutil"
	"versereel/internal/media/ffprobe"
	"versereel/internal/services"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// composeDurationSlack is how far the muxed length may fall short of the
// narration.
const composeDurationSlack = 0.25

// Inspector reports the stream layout of a rendered file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Composer muxes the backdrop, narration and optional captions into the
// final vertical video.
type Composer struct {
	tool      *Tool
	layout    storage.Layout
	video     config.Video
	inspector Inspector
}

// NewComposer constructs the composition stage.
func NewComposer(tool *Tool, layout storage.Layout, video config.Video) *Composer {
	return &Composer{tool: tool, layout: layout, video: video}
}

// WithInspector checks each composed file before it is published.
func (c *Composer) WithInspector(inspector Inspector) *Composer {
	c.inspector = inspector
	return c
}

// Compose implements stage.Composer. The background is looped and the output
// is cut to req.Duration so the narration is never truncated.
func (c *Composer) Compose(ctx context.Context, req stage.ComposeRequest) (string, error) {
	if req.BackgroundPath == "" || req.AudioPath == "" {
		return "", errors.New("compose: background and audio are required")
	}
	if req.Duration <= 0 {
		return "", fmt.Errorf("compose: invalid duration %.2f", req.Duration)
	}
	dst := c.layout.Path(storage.KindFinal, req.Key, ".mp4")
	tmp := workPath(req.WorkDir, dst)
	if err := ensureParent(tmp); err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}

	if err := c.tool.Run(ctx, "compose", c.args(req, tmp)...); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := c.verify(ctx, tmp, req.Duration); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := fileutil.MoveFile(tmp, dst); err != nil {
		return "", fmt.Errorf("compose: publish: %w", err)
	}
	return dst, nil
}

// verify rejects output with the wrong streams, frame size or a length
// that would cut off the narration.
func (c *Composer) verify(ctx context.Context, path string, duration float64) error {
	if c.inspector == nil {
		return nil
	}
	result, err := c.inspector.Inspect(ctx, path)
	if err != nil {
		return fmt.Errorf("compose: verify: %w", err)
	}
	if v, a := result.VideoStreamCount(), result.AudioStreamCount(); v != 1 || a != 1 {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "compose",
			fmt.Sprintf("expected one video and one audio stream, got %d and %d", v, a), nil)
	}
	if video, _ := result.VideoStream(); video.Width != c.video.Width || video.Height != c.video.Height {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "compose",
			fmt.Sprintf("frame is %dx%d, want %dx%d", video.Width, video.Height, c.video.Width, c.video.Height), nil)
	}
	if got := result.DurationSeconds(); !(got >= duration-composeDurationSlack) {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "compose",
			fmt.Sprintf("output runs %.2fs, narration needs %.2fs", got, duration), nil)
	}
	return nil
}

func (c *Composer) args(req stage.ComposeRequest, output string) []string {
	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", c.video.Width, c.video.Height),
		fmt.Sprintf("crop=%d:%d", c.video.Width, c.video.Height),
		fmt.Sprintf("fps=%d", c.video.FPS),
	}
	if req.SubtitlePath != "" {
		filters = append(filters, "ass="+escapeFilterPath(req.SubtitlePath))
	}
	return []string{
		"-stream_loop", "-1",
		"-i", req.BackgroundPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-vf", strings.Join(filters, ","),
		"-t", secondsArg(req.Duration),
		"-c:v", c.video.Codec,
		"-preset", c.video.Preset,
		"-crf", fmt.Sprint(c.video.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", c.video.AudioBitrate,
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	}
}

// escapeFilterPath quotes a path for use as a filtergraph option value.
func escapeFilterPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// HealthCheck implements stage.HealthChecker.
func (c *Composer) HealthCheck(ctx context.Context) stage.Health {
	health := c.tool.HealthCheck(ctx)
	health.Name = "composition"
	return health
}
