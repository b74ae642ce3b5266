package ffmpeg

import (
	"strings"

	"versereel/internal/textutil"
)

// DefaultTheme is used when no keyword matches.
const DefaultTheme = "default"

var themeKeywords = []struct {
	theme    string
	keywords []string
}{
	{"hope", []string{"hope", "light", "dawn", "morning"}},
	{"strength", []string{"strength", "power", "mighty"}},
	{"peace", []string{"peace", "calm", "rest", "still"}},
	{"love", []string{"love", "heart", "beloved"}},
	{"faith", []string{"faith", "believe", "trust"}},
	{"wisdom", []string{"wisdom", "knowledge", "understanding"}},
}

// DetectTheme picks a backdrop theme from the passage text. Themes are
// checked in a fixed order and the first keyword hit wins.
func DetectTheme(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range themeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.theme
			}
		}
	}
	return DefaultTheme
}

// themeToken normalizes a theme for use in file names.
func themeToken(theme string) string {
	return textutil.SanitizeToken(theme)
}
