package textutil

import (
	"math"
	"strings"
)

// NormalizeSpace collapses runs of whitespace into single spaces and trims the ends.
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// FirstWords returns the first n words of text joined by single spaces.
func FirstWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// EstimateDuration converts a word count to seconds at rate words per second,
// rounded to two decimals. A non-positive rate yields zero.
func EstimateDuration(words int, rate float64) float64 {
	if rate <= 0 || words <= 0 {
		return 0
	}
	return math.Round(float64(words)/rate*100) / 100
}
