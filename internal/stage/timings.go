package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WordTiming is one aligned word, in seconds from the start of the audio.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// LoadWordTimings reads an alignment file written by WriteWordTimings.
func LoadWordTimings(path string) ([]WordTiming, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word timings: %w", err)
	}
	var timings []WordTiming
	if err := json.Unmarshal(data, &timings); err != nil {
		return nil, fmt.Errorf("decode word timings %s: %w", path, err)
	}
	for i, t := range timings {
		if t.End < t.Start {
			return nil, fmt.Errorf("word timings %s: entry %d ends before it starts", path, i)
		}
	}
	return timings, nil
}

// WriteWordTimings stores timings as a JSON array.
func WriteWordTimings(path string, timings []WordTiming) error {
	if timings == nil {
		timings = []WordTiming{}
	}
	data, err := json.MarshalIndent(timings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode word timings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create timings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write word timings: %w", err)
	}
	return nil
}
