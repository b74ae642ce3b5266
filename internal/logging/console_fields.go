package logging

import (
	"log/slog"
	"strings"
)

type consoleField struct {
	label string
	value string
}

// highlightKeys are rendered first, in this order, on info records.
var highlightKeys = []string{
	FieldEventType,
	"reference",
	FieldNaturalKey,
	"mode",
	"status",
	"reason",
	"error",
	"error_message",
	FieldErrorHint,
	FieldImpact,
	"stage_duration",
	"job_duration",
	"duration_seconds",
	"word_count",
	"requested",
	"successful",
	"failed",
	"skipped",
	"retried",
	"still_failed",
	"remote_url",
	"removed",
	"freed_bytes",
	"next_run",
}

// debugOnly lists keys that are hidden on info records.
func debugOnly(key string) bool {
	switch key {
	case FieldCorrelationID, "command", "args", "seed":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func skipConsoleKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldItemID, FieldStage, FieldJob:
		return true
	}
	return false
}

// selectFields orders attributes for console output and reports how many
// were hidden.
func selectFields(attrs []kv, debug bool) ([]consoleField, int) {
	used := make(map[int]bool, len(attrs))
	fields := make([]consoleField, 0, len(attrs))
	hidden := 0

	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipConsoleKey(attr.key) {
			return
		}
		if !debug && debugOnly(attr.key) {
			hidden++
			return
		}
		fields = append(fields, consoleField{label: displayLabel(attr.key), value: formatConsoleValue(attr.key, attr.value)})
	}

	for _, key := range highlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return fields, hidden
}

func formatConsoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		return formatBytes(v.Int64())
	case key == "error" || key == "error_message":
		value := attrString(v)
		if len(value) > 240 {
			value = value[:240] + "…"
		}
		return value
	}
	return formatValue(v)
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldNaturalKey:
		return "Key"
	case "remote_url":
		return "URL"
	case "stage_duration", "job_duration":
		return "Took"
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
