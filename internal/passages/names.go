package passages

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeName converts a collection name to its key form: upper case with
// underscores, e.g. "1 John" becomes "1_JOHN".
func NormalizeName(name string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.ToUpper(strings.Join(fields, "_"))
}

// DisplayName renders a key for humans: "SONG_OF_SOLOMON" becomes "Song Of Solomon".
func DisplayName(key string) string {
	spaced := strings.ReplaceAll(strings.ToLower(key), "_", " ")
	return titleCaser.String(spaced)
}

// Reference formats a position as "John 3:16".
func Reference(collection string, chapter, verse int) string {
	return fmt.Sprintf("%s %d:%d", DisplayName(collection), chapter, verse)
}

// ResolveCollections returns the allowed collections in catalog order: the
// allow-list minus the deny-list. An empty allow-list, or one that matches
// nothing, selects every collection that is not denied.
func ResolveCollections(catalog []string, allow, deny []string) []string {
	allowed := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		if key := NormalizeName(name); key != "" {
			allowed[key] = struct{}{}
		}
	}
	denied := make(map[string]struct{}, len(deny))
	for _, name := range deny {
		if key := NormalizeName(name); key != "" {
			denied[key] = struct{}{}
		}
	}

	var resolved []string
	for _, key := range catalog {
		if _, skip := denied[key]; skip {
			continue
		}
		if _, ok := allowed[key]; ok {
			resolved = append(resolved, key)
		}
	}
	if len(resolved) > 0 {
		return resolved
	}
	for _, key := range catalog {
		if _, skip := denied[key]; !skip {
			resolved = append(resolved, key)
		}
	}
	return resolved
}
