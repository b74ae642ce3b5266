package textutil

import "testing"

func TestWordCountSplitsOnWhitespace(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"Jesus wept.", 2},
		{"In the beginning\n\tGod created", 5},
		{"Blessed is the man that walketh not in the counsel of the ungodly,", 13},
	}
	for _, tt := range tests {
		if got := WordCount(tt.text); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestFirstWords(t *testing.T) {
	text := "For God so loved the world, that he gave"
	if got := FirstWords(text, 5); got != "For God so loved the" {
		t.Fatalf("unexpected first words %q", got)
	}
	if got := FirstWords("Jesus  wept.", 5); got != "Jesus wept." {
		t.Fatalf("short text should be returned whole, got %q", got)
	}
	if got := FirstWords(text, 0); got != "" {
		t.Fatalf("expected empty result for n=0, got %q", got)
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name  string
		words int
		rate  float64
		want  float64
	}{
		{"exact", 20, 2.5, 8.0},
		{"rounded", 7, 3, 2.33},
		{"zero rate", 10, 0, 0},
		{"no words", 0, 2.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateDuration(tt.words, tt.rate); got != tt.want {
				t.Fatalf("EstimateDuration(%d, %v) = %v, want %v", tt.words, tt.rate, got, tt.want)
			}
		})
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := NormalizeSpace("  In the\n beginning  "); got != "In the beginning" {
		t.Fatalf("unexpected normalized text %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("JOHN_3_16"); got != "john_3_16" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("Song of Solomon: 2"); got != "song_of_solomon__2" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown for blank input, got %q", got)
	}
}
