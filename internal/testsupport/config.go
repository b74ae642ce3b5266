package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"versereel/internal/config"
)

// ConfigOption customizes the config built by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns the default config rooted in a fresh temp directory:
// data/, generated/ and logs/ under it, and an env file that does not exist
// so real credentials never leak into tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "generated")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.EnvFile = filepath.Join(base, "missing.env")
	cfg.Background.Zoom = false
	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithSelection overrides the word and duration bounds.
func WithSelection(minWords, maxWords int, maxDuration float64) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Selection.MinWords = minWords
		cfg.Selection.MaxWords = maxWords
		cfg.Selection.MaxDuration = maxDuration
	}
}

// WithMode sets the default selection mode.
func WithMode(mode string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Selection.DefaultMode = mode
	}
}

// WithUploadCredentials fills the OAuth fields with placeholders.
func WithUploadCredentials() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Upload.ClientID = "client-id"
		cfg.Upload.ClientSecret = "client-secret"
		cfg.Upload.RefreshToken = "refresh-token"
	}
}

// WithStubbedBinaries puts exit-0 scripts for names (ffmpeg, ffprobe, piper
// and uvx by default) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "piper", "uvx"}
		}
		binDir := filepath.Join(base, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
