package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	EnvFile   string `toml:"env_file"`
}

// Passages points at the passage catalog.
type Passages struct {
	// CatalogPath is a YAML catalog; empty selects the bundled sample corpus.
	CatalogPath string `toml:"catalog_path"`
	Version     string `toml:"version"`
}

// Selection holds the candidate acceptance rules.
type Selection struct {
	DefaultMode        string   `toml:"default_mode"`
	MinWords           int      `toml:"min_words"`
	MaxWords           int      `toml:"max_words"`
	MaxDuration        float64  `toml:"max_duration_seconds"`
	SpeakingRate       float64  `toml:"speaking_rate"`
	Books              []string `toml:"books"`
	ExcludeBooks       []string `toml:"exclude_books"`
	RandomAttempts     int      `toml:"random_attempts"`
	SequentialAdvances int      `toml:"sequential_advances"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Piper   string `toml:"piper"`
	UVX     string `toml:"uvx"`
}

// Background configures the backdrop stage.
type Background struct {
	// ImageDir may hold <theme>.jpg/.png stills; missing themes fall back to a color.
	ImageDir string            `toml:"image_dir"`
	Colors   map[string]string `toml:"colors"`
	Zoom     bool              `toml:"zoom"`
}

// Speech configures the piper voice.
type Speech struct {
	Model       string  `toml:"model"`
	Speaker     int     `toml:"speaker"`
	LengthScale float64 `toml:"length_scale"`
}

// Alignment configures WhisperX forced alignment.
type Alignment struct {
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
}

// Subtitles configures the burned-in caption style.
type Subtitles struct {
	Font           string `toml:"font"`
	FontSize       int    `toml:"font_size"`
	PrimaryColor   string `toml:"primary_color"`
	HighlightColor string `toml:"highlight_color"`
	OutlineWidth   int    `toml:"outline_width"`
	MarginV        int    `toml:"margin_v"`
	WindowWords    int    `toml:"window_words"`
}

// Video configures composition output.
type Video struct {
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	FPS           int    `toml:"fps"`
	Codec         string `toml:"codec"`
	Preset        string `toml:"preset"`
	CRF           int    `toml:"crf"`
	AudioBitrate  string `toml:"audio_bitrate"`
	SkipSubtitles bool   `toml:"skip_subtitles"`
}

// Retry bounds failed item retries.
type Retry struct {
	MaxRetries int `toml:"max_retries"`
	BatchLimit int `toml:"batch_limit"`
}

// Scheduler configures the daemon job triggers. Times are HH:MM in Timezone.
type Scheduler struct {
	Enabled            bool   `toml:"enabled"`
	Timezone           string `toml:"timezone"`
	GenerationInterval string `toml:"generation_interval"`
	BatchSize          int    `toml:"batch_size"`
	RetryInterval      string `toml:"retry_interval"`
	CleanupTime        string `toml:"cleanup_time"`
	MaintenanceDay     string `toml:"maintenance_day"`
	MaintenanceTime    string `toml:"maintenance_time"`
}

// Upload configures publishing. Credentials usually come from the env file.
type Upload struct {
	ScheduleEnabled     bool     `toml:"schedule_enabled"`
	Times               []string `toml:"times"`
	Privacy             string   `toml:"privacy"`
	TitleTemplate       string   `toml:"title_template"`
	DescriptionTemplate string   `toml:"description_template"`
	Tags                []string `toml:"tags"`
	CategoryID          string   `toml:"category_id"`
	MadeForKids         bool     `toml:"made_for_kids"`
	ClientID            string   `toml:"client_id"`
	ClientSecret        string   `toml:"client_secret"`
	RefreshToken        string   `toml:"refresh_token"`
}

// Storage configures archival and retention.
type Storage struct {
	ArchiveUploaded           bool    `toml:"archive_uploaded"`
	CleanupAfterUpload        bool    `toml:"cleanup_after_upload"`
	KeepFinalVideos           bool    `toml:"keep_final_videos"`
	MaxStorageGB              float64 `toml:"max_storage_gb"`
	IntermediateRetentionDays int     `toml:"intermediate_retention_days"`
	UploadedRetentionDays     int     `toml:"uploaded_retention_days"`
	QueueRetentionDays        int     `toml:"queue_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures ntfy delivery. An empty topic disables it.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnBatch        bool   `toml:"on_batch"`
	OnUpload       bool   `toml:"on_upload"`
	OnError        bool   `toml:"on_error"`
}

// Config encapsulates all configuration values for versereel.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Passages   Passages   `toml:"passages"`
	Selection  Selection  `toml:"selection"`
	Tools      Tools      `toml:"tools"`
	Background Background `toml:"background"`
	Speech     Speech     `toml:"speech"`
	Alignment  Alignment  `toml:"alignment"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Video      Video      `toml:"video"`
	Retry      Retry      `toml:"retry"`
	Scheduler  Scheduler  `toml:"scheduler"`
	Upload     Upload     `toml:"upload"`
	Storage    Storage    `toml:"storage"`
	Logging    Logging    `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Secrets from the env file are applied
// before normalization so they act as environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFile(cfg.Paths.EnvFile); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("versereel.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// loadEnvFile applies KEY=VALUE pairs without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	candidates := []string{path}
	if strings.TrimSpace(path) == "" {
		candidates = []string{defaultEnvFile, ".env"}
	}
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return fmt.Errorf("paths.env_file: %w", err)
		}
		if _, err := os.Stat(expanded); err != nil {
			continue
		}
		if err := godotenv.Load(expanded); err != nil {
			return fmt.Errorf("load env file %s: %w", expanded, err)
		}
	}
	return nil
}

// EnsureDirectories creates the data, output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "ledger.db")
}

// ScratchDir returns the parent of per-stage scratch directories.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.Paths.DataDir, "scratch")
}

// LockPath returns the scheduler single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "versereel.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
