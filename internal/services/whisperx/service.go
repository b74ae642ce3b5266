package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"versereel/internal/config"
	"versereel/internal/logging"
	"versereel/internal/services"
	"versereel/internal/stage"
	"versereel/internal/storage"
)

// whisperx runs through uvx. Word timings are read from the json output;
// CPU runs use float32.
const (
	defaultModel      = "small"
	defaultLanguage   = "en"
	batchSize         = "4"
	outputFormat      = "json"
	segmentResolution = "sentence"

	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL = "https://pypi.org/simple"

	cpuDevice      = "cpu"
	cudaDevice     = "cuda"
	cpuComputeType = "float32"

	vadPyannote = "pyannote"
	vadSilero   = "silero"
)

// Runner executes a command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// Service produces word timings for narration with `uvx whisperx`.
type Service struct {
	uvx    string
	cfg    config.Alignment
	hfTok  string
	layout storage.Layout
	run    Runner
	logger *slog.Logger
}

// NewService creates the alignment stage.
func NewService(uvx string, cfg config.Alignment, layout storage.Layout, logger *slog.Logger) *Service {
	if strings.TrimSpace(uvx) == "" {
		uvx = "uvx"
	}
	return &Service{
		uvx:    uvx,
		cfg:    cfg,
		hfTok:  strings.TrimSpace(os.Getenv("HF_TOKEN")),
		layout: layout,
		run:    execCombined,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(run Runner) *Service {
	if run != nil {
		s.run = run
	}
	return s
}

// SetLogger implements stage.LoggerAware.
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "whisperx")
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return defaultModel
}

// Align implements stage.Aligner. WhisperX writes its JSON into the work dir;
// the aligned words are flattened into the timestamps artifact.
func (s *Service) Align(ctx context.Context, req stage.AlignRequest) (string, error) {
	if req.AudioPath == "" {
		return "", errors.New("align: audio path required")
	}
	outputDir := req.WorkDir
	if outputDir == "" {
		dir, err := os.MkdirTemp("", "whisperx-")
		if err != nil {
			return "", fmt.Errorf("align: scratch dir: %w", err)
		}
		defer os.RemoveAll(dir)
		outputDir = dir
	}

	if err := s.run(ctx, s.uvx, s.buildArgs(req.AudioPath, outputDir)...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "alignment", "whisperx", "", err)
	}

	base := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	segments, err := LoadSegments(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "alignment", "parse output", "", err)
	}
	timings := FlattenWords(segments)
	if len(timings) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "alignment", "whisperx", "no words aligned", nil)
	}

	dst := s.layout.Path(storage.KindTimestamps, req.Key, ".json")
	if err := stage.WriteWordTimings(dst, timings); err != nil {
		return "", err
	}
	s.logger.Debug("narration aligned",
		logging.String("model", s.Model()),
		logging.Int("words", len(timings)),
		logging.Int("expected_words", len(strings.Fields(req.Text))),
	)
	return dst, nil
}

// HealthCheck verifies that uvx resolves on PATH.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if _, err := exec.LookPath(s.uvx); err != nil {
		return stage.MissingBinary("WhisperX", s.uvx)
	}
	return stage.Healthy("WhisperX")
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 32)
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
	} else {
		args = append(args, "--index-url", pypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", batchSize,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
		"--segment_resolution", segmentResolution,
		"--language", languageCode(s.cfg.Language),
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = vadSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == vadPyannote && s.hfTok != "" {
		args = append(args, "--hf_token", s.hfTok)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}
	return args
}

// languageCode reduces a BCP 47 tag such as "en-US" to its ISO 639-1 base.
func languageCode(value string) string {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return defaultLanguage
	}
	base, _ := tag.Base()
	if code := base.String(); len(code) == 2 {
		return code
	}
	return defaultLanguage
}

func execCombined(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Word is a single word from WhisperX output. Start and End are absent for
// tokens the aligner could not place, such as numerals.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p.Segments, nil
}

// FlattenWords returns every aligned word in order. Unplaced words inherit
// the previous word's end (or their segment start) and last until the next
// placed word begins.
func FlattenWords(segments []Segment) []stage.WordTiming {
	var out []stage.WordTiming
	var pending []int
	cursor := 0.0

	settle := func(until float64) {
		for _, i := range pending {
			out[i].End = max(until, out[i].Start)
		}
		pending = pending[:0]
	}

	for _, seg := range segments {
		cursor = max(cursor, seg.Start)
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			if w.Start == nil || w.End == nil {
				out = append(out, stage.WordTiming{Word: text, Start: cursor, End: cursor})
				pending = append(pending, len(out)-1)
				continue
			}
			settle(*w.Start)
			start, end := *w.Start, max(*w.End, *w.Start)
			out = append(out, stage.WordTiming{Word: text, Start: start, End: end})
			cursor = end
		}
		settle(max(seg.End, cursor))
	}
	return out
}
