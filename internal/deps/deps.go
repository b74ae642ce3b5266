package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"versereel/internal/config"
)

// Requirement names an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on PATH.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// Requirements lists the binaries the configured pipeline invokes.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Renders backgrounds and composes videos"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Measures narration length"},
		{Name: "Piper", Command: cfg.Tools.Piper, Description: "Synthesizes narration"},
		{Name: "uvx", Command: cfg.Tools.UVX, Description: "Runs WhisperX word alignment"},
	}
	return reqs
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}
