package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the arbor banner and version to w.
// Colours degrade to plain text when w is not a colour terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{"    _         _", "#34d399"},
		{"   /_\\  _ _ | |__  ___  _ _", "#10b981"},
		{"  / _ \\| '_|| '_ \\/ _ \\| '_|", "#059669"},
		{" /_/ \\_\\_|  |_.__/\\___/|_|", "#047857"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  binary tree editor "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

// Styles colours short status messages.
type Styles struct {
	out *termenv.Output
}

// NewStyles binds the styles to the colour profile of w.
func NewStyles(w io.Writer) Styles {
	return Styles{out: termenv.NewOutput(w)}
}

// Error renders s in red.
func (s Styles) Error(msg string) string {
	return s.out.String(msg).Foreground(s.out.Color("#f87171")).String()
}

// OK renders s in green.
func (s Styles) OK(msg string) string {
	return s.out.String(msg).Foreground(s.out.Color("#34d399")).String()
}

// Muted renders s faint.
func (s Styles) Muted(msg string) string {
	return s.out.String(msg).Faint().String()
}
