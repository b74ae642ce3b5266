package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"versereel/internal/services"
	"versereel/internal/stage"
)

// Runner executes a command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// Tool invokes an ffmpeg binary.
type Tool struct {
	binary string
	run    Runner
}

// NewTool returns a Tool for binary ("ffmpeg" when empty).
func NewTool(binary string) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{binary: binary, run: execCombined}
}

// WithRunner replaces command execution (for tests).
func (t *Tool) WithRunner(run Runner) *Tool {
	if run != nil {
		t.run = run
	}
	return t
}

// Run executes ffmpeg with quiet, overwrite-enabled global flags.
func (t *Tool) Run(ctx context.Context, operation string, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	if err := t.run(ctx, t.binary, full...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, "", err)
	}
	return nil
}

// HealthCheck verifies the binary starts.
func (t *Tool) HealthCheck(ctx context.Context) stage.Health {
	if err := t.run(ctx, t.binary, "-version"); err != nil {
		return stage.Unhealthy("FFmpeg", err.Error())
	}
	return stage.Healthy("FFmpeg")
}

func execCombined(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// workPath returns a file path inside the leased work dir, or beside dst
// when no lease supplied one.
func workPath(workDir, dst string) string {
	if workDir == "" {
		return dst + ".part" + filepath.Ext(dst)
	}
	return filepath.Join(workDir, filepath.Base(dst))
}

func secondsArg(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
