// Package ffprobe wraps ffprobe JSON output. The pipeline uses it to measure
// synthesized narration so downstream stages work from the real audio length
// rather than the word-rate estimate.
package ffprobe
