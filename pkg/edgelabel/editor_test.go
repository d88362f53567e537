package edgelabel

import (
	"strings"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/graph"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds start -> a and start -> b.
func fixture(t *testing.T) (*graph.Graph, domain.Choice, domain.Choice) {
	t.Helper()
	g := graph.New()
	start := g.AddStep(domain.Position{})
	a := g.AddStep(domain.Position{})
	b := g.AddStep(domain.Position{})
	ca, err := g.AddChoice(rules.Proposal{SourceStepID: start.ID, SourceSlot: 0, TargetStepID: a.ID, TargetSlot: 0}, "Go left")
	require.NoError(t, err)
	cb, err := g.AddChoice(rules.Proposal{SourceStepID: start.ID, SourceSlot: 1, TargetStepID: b.ID, TargetSlot: 0}, "Go right")
	require.NoError(t, err)
	return g, ca, cb
}

func TestEditor_OpenTypeConfirm(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)

	require.NoError(t, ed.Open(ca.ID))
	assert.Equal(t, Editing, ed.State())
	assert.Equal(t, "Go left", ed.Draft())

	assert.True(t, ed.Type("Walk\n into the woods"))
	assert.Equal(t, "Walk into the woods", ed.Draft())

	out, err := ed.Confirm()
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	assert.Equal(t, Closed, ed.State())

	label, _ := g.ChoiceLabel(ca.ID)
	assert.Equal(t, "Walk into the woods", label)
}

func TestEditor_TypeCapsLength(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))

	ed.Type(strings.Repeat("é", 80))
	assert.Equal(t, 50, len([]rune(ed.Draft())))

	_, err := ed.Confirm()
	require.NoError(t, err)
}

func TestEditor_EmptyConfirmDeletesOnlyThatEdge(t *testing.T) {
	g, ca, cb := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))
	ed.Type("   ")

	out, err := ed.Confirm()
	require.NoError(t, err)
	assert.Equal(t, Deleted, out)

	choices := g.Choices()
	require.Len(t, choices, 1)
	assert.Equal(t, cb.ID, choices[0].ID)
}

func TestEditor_CancelDiscardsDraft(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))
	ed.Type("Something else")

	out, err := ed.HandleKey(KeyEscape)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Equal(t, Closed, ed.State())

	label, _ := g.ChoiceLabel(ca.ID)
	assert.Equal(t, "Go left", label)
}

func TestEditor_EnterConfirms(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))
	ed.Type("Run")

	out, err := ed.HandleKey(KeyEnter)
	require.NoError(t, err)
	assert.Equal(t, Committed, out)

	out, err = ed.HandleKey("a")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, out)
}

func TestEditor_DeleteIgnoresDraft(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))
	ed.Type("A perfectly fine label")

	out, err := ed.Delete()
	require.NoError(t, err)
	assert.Equal(t, Deleted, out)
	_, ok := g.Choice(ca.ID)
	assert.False(t, ok)
}

func TestEditor_OpeningAnotherEdgeDiscardsPrior(t *testing.T) {
	g, ca, cb := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))
	ed.Type("never committed")

	require.NoError(t, ed.Open(cb.ID))
	assert.True(t, ed.IsEditing(cb.ID))
	assert.Equal(t, "Go right", ed.Draft())

	label, _ := g.ChoiceLabel(ca.ID)
	assert.Equal(t, "Go left", label)
}

func TestEditor_OpenUnknownEdge(t *testing.T) {
	g, _, _ := fixture(t)
	ed := New(g)
	err := ed.Open("missing")
	assert.ErrorIs(t, err, domain.ErrChoiceNotFound)
	assert.Equal(t, Closed, ed.State())
}

func TestEditor_ClosedIsInert(t *testing.T) {
	g, _, _ := fixture(t)
	ed := New(g)

	assert.False(t, ed.Type("x"))
	out, err := ed.Confirm()
	assert.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	out, err = ed.Delete()
	assert.NoError(t, err)
	assert.Equal(t, Unchanged, out)
	assert.Len(t, g.Choices(), 2)
}

func TestEditor_ForgetClosesWhenEdgeVanishes(t *testing.T) {
	g, ca, _ := fixture(t)
	ed := New(g)
	require.NoError(t, ed.Open(ca.ID))

	ed.Forget("other")
	assert.Equal(t, Editing, ed.State())

	g.DeleteStep(ca.TargetStepID)
	ed.Forget(ca.ID)
	assert.Equal(t, Closed, ed.State())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"two\r\nlines", "twolines"},
		{"a\nb\rc", "abc"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
