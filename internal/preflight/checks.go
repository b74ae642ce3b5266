package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"versereel/internal/config"
	"versereel/internal/deps"
	"versereel/internal/ledger"
	"versereel/internal/passages"
	"versereel/internal/storage"
)

// MinFreeBytes is the free-space floor for the output filesystem.
const MinFreeBytes = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps resolves the external binaries the configured pipeline needs.
func CheckSystemDeps(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		r := Result{Name: s.Name, Passed: s.Available, Optional: s.Optional}
		if s.Available {
			r.Detail = s.Path
		} else {
			r.Detail = fmt.Sprintf("%s; %s", s.Detail, strings.ToLower(s.Description))
		}
		results = append(results, r)
	}
	return results
}

// CheckCatalog loads the passage catalog.
func CheckCatalog(cfg config.Passages) Result {
	const name = "Passage catalog"
	catalog, err := passages.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s, %s, %d verses", catalog.Source(), catalog.Version(), catalog.VerseCount()),
	}
}

// CheckUploadCredentials reports whether OAuth credentials are configured.
// Missing credentials only disable publishing.
func CheckUploadCredentials(cfg config.Upload) Result {
	const name = "Upload credentials"
	var missing []string
	for field, value := range map[string]string{
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
		"refresh_token": cfg.RefreshToken,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Optional: true, Detail: "missing " + strings.Join(sortedCopy(missing), ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckDiskSpace verifies the filesystem holding path has at least minFree bytes.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	usage, err := storage.Usage(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%.1f GiB free (%.0f%% used)", float64(usage.FreeBytes)/(1<<30), usage.UsedPercent())
	if usage.FreeBytes < minFree {
		return Result{Name: name, Detail: detail + "; below minimum"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// HealthSource is the ledger surface used by CheckLedger.
type HealthSource interface {
	CheckHealth(ctx context.Context) (ledger.DatabaseHealth, error)
}

// CheckLedger runs the ledger integrity check.
func CheckLedger(ctx context.Context, store HealthSource) Result {
	const name = "Ledger"
	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("schema v%d, %d items, integrity %s", health.SchemaVersion, health.TotalItems, health.Integrity)
	return Result{Name: name, Passed: health.OK(), Detail: detail}
}
