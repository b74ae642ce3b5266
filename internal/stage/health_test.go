package stage_test

import (
	"testing"

	"versereel/internal/stage"
)

func TestHealthString(t *testing.T) {
	cases := []struct {
		health stage.Health
		want   string
	}{
		{stage.Healthy("FFmpeg"), "FFmpeg: ready"},
		{stage.Unhealthy("Uploader", "credentials not configured"), "Uploader: not ready (credentials not configured)"},
		{stage.MissingBinary("Piper", "piper"), `Piper: not ready (binary "piper" not found)`},
	}
	for _, tc := range cases {
		if got := tc.health.String(); got != tc.want {
			t.Fatalf("got %q, want %q", got, tc.want)
		}
	}
}
