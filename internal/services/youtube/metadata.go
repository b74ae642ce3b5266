package youtube

import (
	"strings"
	"unicode/utf8"

	"versereel/internal/config"
	"versereel/internal/stage"
	"versereel/internal/textutil"
)

// Title and description limits enforced by the Data API.
const (
	maxTitleRunes       = 100
	maxDescriptionBytes = 5000
	firstWordsCount     = 5
)

// Passage holds the values substituted into metadata templates.
type Passage struct {
	Reference string
	Text      string
	Version   string
}

// RenderMetadata fills the configured templates. Supported placeholders are
// {reference}, {first_words}, {text} and {version}.
func RenderMetadata(cfg config.Upload, p Passage) stage.UploadMetadata {
	replacer := strings.NewReplacer(
		"{reference}", p.Reference,
		"{first_words}", textutil.FirstWords(p.Text, firstWordsCount),
		"{text}", textutil.NormalizeSpace(p.Text),
		"{version}", p.Version,
	)
	return stage.UploadMetadata{
		Title:       truncateRunes(strings.TrimSpace(replacer.Replace(cfg.TitleTemplate)), maxTitleRunes),
		Description: truncateBytes(replacer.Replace(cfg.DescriptionTemplate), maxDescriptionBytes),
		Tags:        append([]string(nil), cfg.Tags...),
		CategoryID:  cfg.CategoryID,
		Privacy:     cfg.Privacy,
		MadeForKids: cfg.MadeForKids,
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
