package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sceneweaver ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___                    __      __", "#34d399"},
		{" / __| __ ___ _ _  ___   \\ \\    / /__ __ ___ _____ _ _", "#2dd4bf"},
		{" \\__ \\/ _/ -_) ' \\/ -_)   \\ \\/\\/ / -_) _` \\ V / -_) '_|", "#22d3ee"},
		{" |___/\\__\\___|_||_\\___|    \\_/\\_/\\___\\__,_|\\_/\\___|_|", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Severity colours for diagnostics output.
var (
	errorColor   = "#f87171"
	warningColor = "#fbbf24"
	okColor      = "#34d399"
)

// Colorize paints s for the given severity ("error", "warning" or "ok").
// Without a colour-capable terminal s is returned unchanged.
func Colorize(severity, s string) string {
	p := termenv.ColorProfile()
	if p == termenv.Ascii {
		return s
	}
	color := okColor
	switch severity {
	case "error":
		color = errorColor
	case "warning":
		color = warningColor
	}
	return termenv.String(s).Foreground(p.Color(color)).String()
}
