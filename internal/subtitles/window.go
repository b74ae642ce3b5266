package subtitles

import "versereel/internal/stage"

// Window returns the half-open range [start, end) of up to size words shown
// while word current is spoken. The range is centered on current and slides
// back near the end of the passage so it stays full.
func Window(total, current, size int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	if size <= 0 {
		size = 1
	}
	current = min(max(current, 0), total-1)
	start := max(0, current-size/2)
	end := min(total, start+size)
	if end-start < size {
		start = max(0, end-size)
	}
	return start, end
}

// Cue is a caption shown over [Start, End) with Words[Highlight] emphasized.
type Cue struct {
	Start     float64
	End       float64
	Words     []string
	Highlight int
}

// BuildCues produces one cue per spoken word. Each cue lasts until the next
// word begins; the final cue is held until duration when that is later.
func BuildCues(timings []stage.WordTiming, windowSize int, duration float64) []Cue {
	cues := make([]Cue, 0, len(timings))
	for i, timing := range timings {
		end := timing.End
		if i+1 < len(timings) {
			end = max(end, timings[i+1].Start)
		} else {
			end = max(end, duration)
		}
		if end <= timing.Start {
			continue
		}
		start, stop := Window(len(timings), i, windowSize)
		words := make([]string, 0, stop-start)
		for _, w := range timings[start:stop] {
			words = append(words, w.Word)
		}
		cues = append(cues, Cue{Start: timing.Start, End: end, Words: words, Highlight: i - start})
	}
	return cues
}
