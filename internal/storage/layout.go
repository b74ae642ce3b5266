package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"versereel/internal/textutil"
)

// Kind is an artifact directory under the output root.
type Kind string

const (
	KindBackgrounds Kind = "backgrounds"
	KindAudio       Kind = "audio"
	KindTimestamps  Kind = "timestamps"
	KindSubtitles   Kind = "subtitles"
	KindFinal       Kind = "final"
	KindUploaded    Kind = "uploaded"
)

// IntermediateKinds lists directories holding per-stage scratch artifacts.
func IntermediateKinds() []Kind {
	return []Kind{KindBackgrounds, KindAudio, KindTimestamps, KindSubtitles}
}

func allKinds() []Kind {
	return append(IntermediateKinds(), KindFinal, KindUploaded)
}

// Layout maps artifacts to paths under the output directory.
type Layout struct {
	Root string
}

// NewLayout returns a layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Root: filepath.Clean(dir)}
}

// Dir returns the directory for kind.
func (l Layout) Dir(kind Kind) string {
	return filepath.Join(l.Root, string(kind))
}

// Path returns the artifact file for a natural key, e.g.
// <root>/audio/JOHN_3_16.wav.
func (l Layout) Path(kind Kind, key, ext string) string {
	name := textutil.SanitizeFileName(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(l.Dir(kind), name+ext)
}

// Ensure creates every artifact directory.
func (l Layout) Ensure() error {
	for _, kind := range allKinds() {
		if err := os.MkdirAll(l.Dir(kind), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", kind, err)
		}
	}
	return nil
}
