package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// When stdout is not a terminal the markdown is returned as is.
func NewRenderer() func(string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// RenderScenario builds a markdown reading view of a scenario: one section
// per step with its location and the choices leading on.
func RenderScenario(doc document.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	if doc.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", doc.Description)
	}
	if doc.CreatedBy.Username != "" {
		fmt.Fprintf(&sb, "_by %s_\n\n", doc.CreatedBy.Username)
	}

	titles := make(map[string]string, len(doc.Steps))
	for _, s := range doc.Steps {
		titles[s.ID] = s.Title
	}

	for i, s := range doc.Steps {
		fmt.Fprintf(&sb, "## %d. %s\n\n", i+1, s.Title)
		if s.Location != nil {
			fmt.Fprintf(&sb, "> 📍 **%s** (%.6f, %.6f)\n", s.Location.Title, float64(s.Location.Latitude), float64(s.Location.Longitude))
			if s.Location.Description != "" {
				fmt.Fprintf(&sb, "> %s\n", s.Location.Description)
			}
			sb.WriteString("\n")
		}
		if s.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", s.Description)
		}
		if len(s.Choices) == 0 {
			sb.WriteString("*The End.*\n\n")
			continue
		}
		for _, c := range s.Choices {
			target := titles[c.Next]
			if target == "" {
				target = c.Next
			}
			fmt.Fprintf(&sb, "- **%s** → %s\n", c.Text, target)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
