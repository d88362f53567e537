package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/stretchr/testify/assert"
)

func TestRenderScenario(t *testing.T) {
	doc := document.Document{
		Title:       "Harbour",
		Description: "A short walk.",
		CreatedBy:   document.UserRef{ID: "1", Username: "ana"},
		Steps: []document.StepDoc{
			{ID: "a", Title: "Pier", Location: &document.LocationDoc{Title: "Dock 3", Latitude: 54.352025, Longitude: 18.646638},
				Choices: []document.ChoiceDoc{{Text: "Board", Next: "b"}}},
			{ID: "b", Title: "Ferry", Choices: []document.ChoiceDoc{}},
		},
	}

	md := RenderScenario(doc)
	assert.Contains(t, md, "# Harbour\n")
	assert.Contains(t, md, "_by ana_")
	assert.Contains(t, md, "## 1. Pier")
	assert.Contains(t, md, "📍 **Dock 3** (54.352025, 18.646638)")
	assert.Contains(t, md, "- **Board** → Ferry")
	assert.Contains(t, md, "## 2. Ferry\n\n*The End.*")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "___")
}

func TestNewRenderer_PlainWhenNotTTY(t *testing.T) {
	// go test does not attach stdout to a terminal.
	render := NewRenderer()
	out, err := render("# Title")
	assert.NoError(t, err)
	assert.Contains(t, out, "Title")
}
