package textutil

import "strings"

var unsafePathChars = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a natural key or title safe to use as a file name.
func SanitizeFileName(name string) string {
	return strings.TrimSpace(unsafePathChars.Replace(strings.TrimSpace(name)))
}

// SanitizeToken lowercases value and replaces anything outside [a-z0-9_-]
// with an underscore, e.g. "Song of Solomon" -> "song_of_solomon".
// Blank input yields "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
