package document

import (
	"sort"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/graph"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		ID:          "sc-1",
		CreatedBy:   UserRef{ID: "7"},
		Title:       "The Old Town Walk",
		Description: "A stroll.",
		Steps: []StepDoc{
			{ID: "start", Title: "Start", Description: "Square", Choices: []ChoiceDoc{
				{Text: "Church", Next: "church"},
				{Text: "Market", Next: "market"},
				{Text: "Bridge", Next: "bridge"},
			}, Location: &LocationDoc{Title: "Square", Latitude: 50.061, Longitude: 19.937}},
			{ID: "church", Title: "Church", Choices: []ChoiceDoc{{Text: "Back", Next: "start"}}},
			{ID: "market", Title: "Market", Choices: []ChoiceDoc{{Text: "Bridge", Next: "bridge"}}},
			{ID: "bridge", Title: "Bridge", Choices: []ChoiceDoc{}},
		},
	}
}

type triple struct{ source, label, target string }

func triples(doc Document) []triple {
	var out []triple
	for _, s := range doc.Steps {
		for _, c := range s.Choices {
			out = append(out, triple{s.ID, c.Text, c.Next})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.source != b.source {
			return a.source < b.source
		}
		if a.label != b.label {
			return a.label < b.label
		}
		return a.target < b.target
	})
	return out
}

func TestRoundTripPreservesWireContent(t *testing.T) {
	in := sampleDocument()

	meta, g, err := FromDocument(in)
	require.NoError(t, err)
	out := ToDocument(meta, g)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.CreatedBy.ID, out.CreatedBy.ID)
	assert.Equal(t, in.Title, out.Title)
	require.Len(t, out.Steps, len(in.Steps))
	for i := range in.Steps {
		assert.Equal(t, in.Steps[i].ID, out.Steps[i].ID)
		assert.Equal(t, in.Steps[i].Title, out.Steps[i].Title)
		assert.Equal(t, in.Steps[i].Description, out.Steps[i].Description)
	}
	assert.Equal(t, triples(in), triples(out))
	assert.Equal(t, in.Steps[0].Location, out.Steps[0].Location)
	assert.Nil(t, out.Steps[1].Location)
}

func TestFromDocument_SlotsFollowListOrder(t *testing.T) {
	_, g, err := FromDocument(sampleDocument())
	require.NoError(t, err)

	from := g.ChoicesFrom("start")
	require.Len(t, from, 3)
	for i, c := range from {
		assert.Equal(t, i, c.SourceSlot)
	}

	// "bridge" receives two choices, both preferring input slot 0 or 2.
	var into []domain.Choice
	for _, c := range g.Choices() {
		if c.TargetStepID == "bridge" {
			into = append(into, c)
		}
	}
	require.Len(t, into, 2)
	assert.NotEqual(t, into[0].TargetSlot, into[1].TargetSlot)
}

func TestFromDocument_FanInProbesFreeSlot(t *testing.T) {
	doc := Document{Title: "t", Steps: []StepDoc{
		{ID: "a", Title: "a", Choices: []ChoiceDoc{{Text: "x", Next: "z"}}},
		{ID: "b", Title: "b", Choices: []ChoiceDoc{{Text: "x", Next: "z"}}},
		{ID: "c", Title: "c", Choices: []ChoiceDoc{{Text: "x", Next: "z"}}},
		{ID: "z", Title: "z"},
	}}
	_, g, err := FromDocument(doc)
	require.NoError(t, err)

	slots := map[int]bool{}
	for _, c := range g.Choices() {
		slots[c.TargetSlot] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, slots)
}

func TestFromDocument_Refusals(t *testing.T) {
	five := make([]ChoiceDoc, 5)
	for i := range five {
		five[i] = ChoiceDoc{Text: "go", Next: "a"}
	}
	fanIn := []StepDoc{{ID: "z", Title: "z"}}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		fanIn = append(fanIn, StepDoc{ID: id, Title: id, Choices: []ChoiceDoc{{Text: "go", Next: "z"}}})
	}

	tests := []struct {
		name string
		doc  Document
		want error
	}{
		{"duplicate ids", Document{Steps: []StepDoc{{ID: "a"}, {ID: "a"}}}, domain.ErrDuplicateStep},
		{"dangling next", Document{Steps: []StepDoc{{ID: "a", Choices: []ChoiceDoc{{Text: "x", Next: "ghost"}}}}}, domain.ErrStepNotFound},
		{"fan-out", Document{Steps: []StepDoc{{ID: "a", Choices: five}}}, domain.ErrFanOutLimit},
		{"fan-in", Document{Steps: fanIn}, domain.ErrInputPortOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, g, err := FromDocument(tt.doc)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestFromDocument_TolerantLabels(t *testing.T) {
	long := "This label is far longer than anything the editor would let you type"
	doc := Document{Steps: []StepDoc{
		{ID: "a", Choices: []ChoiceDoc{{Text: "  ", Next: "b"}, {Text: long, Next: "b"}}},
		{ID: "b"},
	}}
	_, g, err := FromDocument(doc)
	require.NoError(t, err)

	from := g.ChoicesFrom("a")
	require.Len(t, from, 2)
	assert.Equal(t, domain.DefaultChoiceText, from[0].Label)
	assert.LessOrEqual(t, len([]rune(from[1].Label)), domain.MaxLabelLength)
}

func TestFromDocument_TrimsLabels(t *testing.T) {
	doc := Document{Steps: []StepDoc{
		{ID: "a", Choices: []ChoiceDoc{{Text: " Go north ", Next: "b"}}},
		{ID: "b"},
	}}
	meta, g, err := FromDocument(doc)
	require.NoError(t, err)

	out := ToDocument(meta, g)
	assert.Equal(t, "Go north", out.Steps[0].Choices[0].Text)
}

func TestToDocument_GroupsChoicesInCreationOrder(t *testing.T) {
	g := graph.New()
	a := g.AddStep(domain.Position{})
	b := g.AddStep(domain.Position{})
	c := g.AddStep(domain.Position{})

	// Slot order deliberately differs from creation order.
	_, err := g.AddChoice(rules.Proposal{SourceStepID: a.ID, SourceSlot: 3, TargetStepID: c.ID, TargetSlot: 0}, "first")
	require.NoError(t, err)
	_, err = g.AddChoice(rules.Proposal{SourceStepID: a.ID, SourceSlot: 0, TargetStepID: b.ID, TargetSlot: 0}, "second")
	require.NoError(t, err)

	doc := ToDocument(domain.Metadata{Title: "T"}, g)
	require.Len(t, doc.Steps, 3)
	assert.Equal(t, []ChoiceDoc{{Text: "first", Next: c.ID}, {Text: "second", Next: b.ID}}, doc.Steps[0].Choices)
	assert.NotNil(t, doc.Steps[1].Choices)
	assert.Empty(t, doc.Steps[1].Choices)
}

func TestFromScenario(t *testing.T) {
	_, g, err := FromDocument(sampleDocument())
	require.NoError(t, err)
	snap := domain.Scenario{
		Metadata: domain.Metadata{ID: "sc-1", Title: "The Old Town Walk"},
		Steps:    g.Steps(),
		Choices:  g.Choices(),
	}
	assert.Equal(t, triples(sampleDocument()), triples(FromScenario(snap)))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDocument())
	assert.Equal(t, "start", s.RootStep)
	assert.Equal(t, 4, s.Steps)
	assert.Equal(t, "7", s.CreatedBy.ID)
}
