package piper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"versereel/internal/config"
	"versereel/internal/fileutil"
	"versereel/internal/logging"
	"versereel/internal/services"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// Runner executes name with args, feeding stdin to the process.
type Runner func(ctx context.Context, stdin string, name string, args ...string) error

// Service synthesizes narration with the piper CLI.
type Service struct {
	binary string
	cfg    config.Speech
	layout storage.Layout
	run    Runner
	logger *slog.Logger
}

// New returns a piper speech stage.
func New(binary string, cfg config.Speech, layout storage.Layout, logger *slog.Logger) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "piper"
	}
	return &Service{
		binary: binary,
		cfg:    cfg,
		layout: layout,
		run:    execWithStdin,
		logger: logging.NewComponentLogger(logger, "piper"),
	}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(run Runner) *Service {
	if run != nil {
		s.run = run
	}
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "piper")
}

// Synthesize implements stage.Speech. The result is a WAV file under the
// audio artifact directory.
func (s *Service) Synthesize(ctx context.Context, req stage.SpeechRequest) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", errors.New("speech: empty text")
	}
	dst := s.layout.Path(storage.KindAudio, req.Key, ".wav")
	tmp := dst + ".part"
	if req.WorkDir != "" {
		tmp = filepath.Join(req.WorkDir, "narration.wav")
	} else if err := os.MkdirAll(s.layout.Dir(storage.KindAudio), 0o755); err != nil {
		return "", fmt.Errorf("speech: %w", err)
	}

	if err := s.run(ctx, text, s.binary, s.args(tmp)...); err != nil {
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrExternalTool, "speech", "piper", "", err)
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, "speech", "piper", "no audio produced", err)
	}
	if err := fileutil.MoveFile(tmp, dst); err != nil {
		return "", fmt.Errorf("speech: publish: %w", err)
	}
	s.logger.Debug("narration synthesized",
		logging.String("model", s.cfg.Model),
		logging.Int64("size_bytes", info.Size()),
	)
	return dst, nil
}

func (s *Service) args(output string) []string {
	args := []string{"--model", s.cfg.Model, "--output_file", output}
	if s.cfg.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(s.cfg.Speaker))
	}
	if s.cfg.LengthScale > 0 && s.cfg.LengthScale != 1 {
		args = append(args, "--length_scale", strconv.FormatFloat(s.cfg.LengthScale, 'f', -1, 64))
	}
	return args
}

// HealthCheck verifies that the binary resolves on PATH.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(s.binary); err != nil {
		return stage.MissingBinary("Piper", s.binary)
	}
	if strings.TrimSpace(s.cfg.Model) == "" {
		return stage.Unhealthy("Piper", "speech.model not configured")
	}
	return stage.Healthy("Piper")
}

func execWithStdin(ctx context.Context, stdin string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(stdin)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
