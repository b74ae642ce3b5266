package preflight

import (
	"context"
	"slices"

	"versereel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Blocking reports whether a failed result should stop the pipeline.
func (r Result) Blocking() bool {
	return !r.Passed && !r.Optional
}

// RunAll executes the configuration-only checks: directories, binaries, the
// passage catalog, upload credentials and free disk space.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	results = append(results, CheckSystemDeps(cfg)...)
	results = append(results,
		CheckCatalog(cfg.Passages),
		CheckUploadCredentials(cfg.Upload),
	)
	if out := results[1]; out.Passed {
		results = append(results, CheckDiskSpace("Disk space", cfg.Paths.OutputDir, MinFreeBytes))
	}
	return results
}

// Blocking returns the failed non-optional results.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Blocking() {
			failed = append(failed, r)
		}
	}
	return failed
}

func sortedCopy(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}
