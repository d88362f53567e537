package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sceneweaver/pkg/document"
)

// Overlay contains dynamic state data to visualize on the graph.
type Overlay struct {
	// ErrorSteps are step ids that carry validation messages.
	ErrorSteps []string
	// Selected is the step currently focused in the editor.
	Selected string
}

// GenerateMermaid produces a Mermaid flowchart for a scenario document.
// It applies semantic styling:
// - Root step: ((Circle))
// - Terminal step (no choices): ([Stadium])
// - Default: [Rectangle]
// Steps with a location get a pin marker. Choices become labelled arrows;
// arrows to unknown steps are drawn dotted.
func GenerateMermaid(doc document.Document, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	root := document.Summarize(doc).RootStep
	known := make(map[string]bool, len(doc.Steps))
	for _, s := range doc.Steps {
		known[s.ID] = true
	}

	for _, step := range doc.Steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.ID == root:
			opener, closer = "((", "))"
		case len(step.Choices) == 0:
			opener, closer = "([", "])"
		}

		title := escapeLabel(step.Title)
		if title == "" {
			title = step.ID
		}
		if step.Location != nil {
			title += " <br/> 📍 " + escapeLabel(step.Location.Title)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, title, closer))

		for _, c := range step.Choices {
			arrow := "-->"
			if !known[c.Next] {
				arrow = "-.->"
			}
			if c.Text != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(c.Text))
				if !known[c.Next] {
					arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(c.Text))
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(c.Next)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.ErrorSteps {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" && known[id] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s invalid;\n", safeID))
			}
		}
		if overlay.Selected != "" && known[overlay.Selected] {
			sb.WriteString(fmt.Sprintf("    class %s selected;\n", sanitizeMermaidID(overlay.Selected)))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.Join(strings.Fields(s), " ")
}

func sanitizeMermaidID(id string) string {
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "s_" + s
	}
	return s
}
