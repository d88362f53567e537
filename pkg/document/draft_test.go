package document

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/graph"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_KeepsCanvasState(t *testing.T) {
	g := graph.New()
	a := g.AddStep(domain.Position{X: 10, Y: 20})
	b := g.AddStep(domain.Position{X: 300, Y: 450})
	down, err := g.AddChoice(rules.Proposal{SourceStepID: a.ID, SourceSlot: 3, TargetStepID: b.ID, TargetSlot: 2}, "Down")
	require.NoError(t, err)
	_, err = g.AddChoice(rules.Proposal{SourceStepID: a.ID, SourceSlot: 1, TargetStepID: a.ID, TargetSlot: 0}, "Stay")
	require.NoError(t, err)
	g.SetStepErrors(b.ID, []string{"Title required"})
	g.SetGeneralErrors([]string{"scenario: too short"})

	data, err := json.Marshal(ToDraft(domain.Metadata{Title: "Canvas"}, g))
	require.NoError(t, err)
	var draft Draft
	require.NoError(t, json.Unmarshal(data, &draft))

	meta, restored, err := FromDraft(draft)
	require.NoError(t, err)
	assert.Equal(t, "Canvas", meta.Title)

	gotA, _ := restored.Step(a.ID)
	gotB, _ := restored.Step(b.ID)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, gotA.Position)
	assert.Equal(t, domain.Position{X: 300, Y: 450}, gotB.Position)
	assert.Equal(t, []string{"Title required"}, gotB.Errors)
	assert.Equal(t, []string{"scenario: too short"}, restored.GeneralErrors())

	from := restored.ChoicesFrom(a.ID)
	require.Len(t, from, 2)
	assert.Equal(t, down.ID, from[0].ID, "choice ids survive")
	assert.Equal(t, [2]int{3, 2}, [2]int{from[0].SourceSlot, from[0].TargetSlot})
	assert.Equal(t, [2]int{1, 0}, [2]int{from[1].SourceSlot, from[1].TargetSlot})
}

func TestFromDraft_StaleSlotsFallBack(t *testing.T) {
	draft := Draft{
		Document: Document{Title: "t", Steps: []StepDoc{
			{ID: "a", Title: "a", Choices: []ChoiceDoc{{Text: "x", Next: "z"}, {Text: "y", Next: "z"}}},
			{ID: "z", Title: "z"},
		}},
		Layout: &Layout{Steps: map[string]StepLayout{
			// Both choices claim the same ports; the second cannot keep them.
			"a": {Choices: []ChoiceLayout{{Source: 2, Target: 1}, {Source: 2, Target: 1}}},
		}},
	}

	_, g, err := FromDraft(draft)
	require.NoError(t, err)

	from := g.ChoicesFrom("a")
	require.Len(t, from, 2)
	assert.Equal(t, 2, from[0].SourceSlot)
	assert.Equal(t, 1, from[0].TargetSlot)
	assert.NotEqual(t, from[0].SourceSlot, from[1].SourceSlot)
	assert.NotEqual(t, from[0].TargetSlot, from[1].TargetSlot)
}

func TestFromDraft_WithoutLayout(t *testing.T) {
	_, fromDraft, err := FromDraft(Draft{Document: sampleDocument()})
	require.NoError(t, err)
	_, fromDoc, err := FromDocument(sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, triples(ToDocument(domain.Metadata{}, fromDoc)), triples(ToDocument(domain.Metadata{}, fromDraft)))
}

func TestDraft_Clone(t *testing.T) {
	d := Draft{
		Document: sampleDocument(),
		Layout:   &Layout{Steps: map[string]StepLayout{"start": {Choices: []ChoiceLayout{{Source: 1}}}}},
	}
	c := d.Clone()
	c.Layout.Steps["start"].Choices[0].Source = 3
	c.Document.Steps[0].Title = "changed"

	assert.Equal(t, 1, d.Layout.Steps["start"].Choices[0].Source)
	assert.Equal(t, "Start", d.Document.Steps[0].Title)
	assert.Nil(t, Draft{}.Clone().Layout)
}
