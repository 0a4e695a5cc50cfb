package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind selects the bracket tag and color of a rendered status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var kindTags = [...]string{
	statusInfo:  "INFO",
	statusOK:    "OK",
	statusWarn:  "WARN",
	statusError: "ERROR",
}

var kindColors = [...]string{
	statusInfo:  ansiBlue,
	statusOK:    ansiGreen,
	statusWarn:  ansiYellow,
	statusError: ansiRed,
}

func (k statusKind) tag() string {
	if k < statusInfo || int(k) >= len(kindTags) {
		return "INFO"
	}
	return kindTags[k]
}

func (k statusKind) color() string {
	if k < statusInfo || int(k) >= len(kindColors) {
		return ""
	}
	return kindColors[k]
}

// renderStatusLine lays out one aligned "Label:  [TAG] message" row.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := "[" + kind.tag() + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	return colorWrap(line, kind.color(), colorize)
}

// renderSectionHeader returns the "== Title ==" banner and its rule line.
func renderSectionHeader(title string, colorize bool) []string {
	banner := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(banner))
	return []string{
		colorWrap(banner, ansiBlue, colorize),
		colorWrap(rule, ansiBlue, colorize),
	}
}

func colorWrap(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + ansiReset
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	f, ok := writer.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
