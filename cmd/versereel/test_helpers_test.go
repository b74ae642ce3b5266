package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"versereel/internal/config"
	"versereel/internal/daemonrun"
	"versereel/internal/ledger"
	"versereel/internal/testsupport"
	"versereel/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	fakes      *testsupport.FakeStages
	stages     workflow.StageSet
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg.Passages.CatalogPath = testsupport.WriteCatalog(t, base)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	fakes := testsupport.NewFakeStages(t)
	return &cliTestEnv{
		cfg:   cfg,
		fakes: fakes,
		stages: workflow.StageSet{
			Background: fakes.Background(),
			Speech:     fakes.Speech(),
			Aligner:    fakes.Aligner(),
			Subtitler:  fakes.Subtitler(),
			Composer:   fakes.Composer(),
			Uploader:   fakes.Uploader(),
		},
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stages := e.stages
	cmd := newRootCommand(withRuntimeOptions(daemonrun.RuntimeOptions{Stages: &stages}))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliTestEnv) store(t *testing.T) *ledger.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, e.cfg)
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
output_dir = %q
log_dir = %q
env_file = %q

[passages]
catalog_path = %q

[selection]
default_mode = "sequential"
min_words = 1
max_words = 50
max_duration_seconds = 60.0
`,
		cfg.Paths.DataDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.EnvFile,
		cfg.Passages.CatalogPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
