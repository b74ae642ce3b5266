package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Style is the caption appearance.
type Style struct {
	Font           string
	FontSize       int
	PrimaryColor   string // RRGGBB
	HighlightColor string // RRGGBB
	OutlineWidth   int
	MarginV        int
	PlayResX       int
	PlayResY       int
}

// FormatASS renders cues as an Advanced SubStation Alpha script with the
// highlighted word recolored inline.
func FormatASS(style Style, cues []Cue) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	fmt.Fprintf(&b, "PlayResX: %d\nPlayResY: %d\n\n", style.PlayResX, style.PlayResY)

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,%s,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,%d,0,2,60,60,%d,1\n\n",
		style.Font, style.FontSize, assColor(style.PrimaryColor), assColor(style.HighlightColor), style.OutlineWidth, style.MarginV)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	highlight := assColor(style.HighlightColor)
	for _, cue := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTimestamp(cue.Start), assTimestamp(cue.End), cueText(cue, highlight))
	}
	return b.String()
}

func cueText(cue Cue, highlight string) string {
	parts := make([]string, len(cue.Words))
	for i, word := range cue.Words {
		word = escapeText(word)
		if i == cue.Highlight {
			word = fmt.Sprintf("{\\c%s}%s{\\r}", highlight, word)
		}
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

// escapeText drops override braces and line-break escapes from spoken words.
func escapeText(word string) string {
	return strings.NewReplacer("{", "(", "}", ")", `\`, "/").Replace(word)
}

// assTimestamp formats seconds as H:MM:SS.cc.
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// assColor converts RRGGBB to the ASS &HAABBGGRR form. Invalid input maps to
// opaque white.
func assColor(rgb string) string {
	rgb = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(rgb), "#"), "0x")
	if len(rgb) != 6 {
		return "&H00FFFFFF"
	}
	v, err := strconv.ParseUint(rgb, 16, 32)
	if err != nil {
		return "&H00FFFFFF"
	}
	return fmt.Sprintf("&H00%02X%02X%02X", v&0xFF, (v>>8)&0xFF, v>>16)
}
