package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/crabritto/arbor/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// When styled is false (no TTY) the markdown is returned unchanged.
func NewRenderer(styled bool) func(string) (string, error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ResultMarkdown formats an analysis result as a markdown document.
func ResultMarkdown(dm *domain.DisplayModel) string {
	var sb strings.Builder
	sb.WriteString("# Analysis\n\n")
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Pre-order | %s |\n", joinLabels(dm.PreOrder))
	if dm.InOrder != nil {
		fmt.Fprintf(&sb, "| In-order | %s |\n", joinLabels(dm.InOrder))
	}
	fmt.Fprintf(&sb, "| Post-order | %s |\n", joinLabels(dm.PostOrder))
	fmt.Fprintf(&sb, "| Height | %s |\n", orDash(dm.Height))
	fmt.Fprintf(&sb, "| Type | %s |\n", orDash(dm.Classification))
	fmt.Fprintf(&sb, "| Structure | %s |\n", orDash(dm.Structure))
	if dm.ImageURL != "" {
		fmt.Fprintf(&sb, "\nImage: %s\n", dm.ImageURL)
	}
	return sb.String()
}

func joinLabels(labels []int) string {
	if len(labels) == 0 {
		return "-"
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
