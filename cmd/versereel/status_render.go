package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const (
	ansiReset        = "\x1b[0m"
	statusLabelWidth = 18
)

// statusReport prints doctor sections and counts error-level lines.
type statusReport struct {
	out      io.Writer
	colorize bool
	problems int
}

func newStatusReport(out io.Writer) *statusReport {
	return &statusReport{out: out, colorize: shouldColorize(out)}
}

func (r *statusReport) section(title string) {
	fmt.Fprintln(r.out, r.paint(statusInfo, "== "+title+" =="))
}

// line prints "  Label:  [OK] detail".
func (r *statusReport) line(label string, kind statusKind, detail string) {
	if kind == statusError {
		r.problems++
	}
	status := "[" + statusStyles[kind].label + "]"
	if detail != "" {
		status += " " + detail
	}
	fmt.Fprintln(r.out, r.paint(kind, fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)))
}

func (r *statusReport) paint(kind statusKind, text string) string {
	if !r.colorize {
		return text
	}
	return statusStyles[kind].color + text + ansiReset
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
