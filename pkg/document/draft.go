package document

import (
	"slices"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/graph"
)

// Draft is the working copy of an editing session. It wraps the wire
// document with the editing state the wire format drops, so a session
// restored from its draft looks exactly as it was left.
type Draft struct {
	Document Document `json:"document"`
	// Layout is nil for drafts built from a bare document; restoring such a
	// draft re-derives slots and runs the layout.
	Layout *Layout `json:"layout,omitempty"`
}

// Layout is the canvas state of a draft.
type Layout struct {
	Steps         map[string]StepLayout `json:"steps"`
	GeneralErrors []string              `json:"general_errors,omitempty"`
	// LabelEdit is the open edge label edit, if any.
	LabelEdit *LabelEdit `json:"label_edit,omitempty"`
}

// LabelEdit is an edge label edit in progress.
type LabelEdit struct {
	ChoiceID string `json:"choice_id"`
	Draft    string `json:"draft"`
}

// StepLayout is the canvas state of one step. Choices follow the order of
// the step's choices in the document.
type StepLayout struct {
	Position domain.Position `json:"position"`
	Choices  []ChoiceLayout  `json:"choices,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// ChoiceLayout records the id and ports of one choice.
type ChoiceLayout struct {
	ID     string `json:"id,omitempty"`
	Source int    `json:"source"`
	Target int    `json:"target"`
}

// DraftView is the read side needed to capture a draft.
type DraftView interface {
	View
	GeneralErrors() []string
}

// ToDraft captures meta and the graph with positions, slots and errors.
func ToDraft(meta domain.Metadata, g DraftView) Draft {
	d := Draft{
		Document: ToDocument(meta, g),
		Layout: &Layout{
			Steps:         make(map[string]StepLayout),
			GeneralErrors: slices.Clone(g.GeneralErrors()),
		},
	}
	for _, s := range g.Steps() {
		sl := StepLayout{Position: s.Position, Errors: slices.Clone(s.Errors)}
		for _, c := range g.ChoicesFrom(s.ID) {
			sl.Choices = append(sl.Choices, ChoiceLayout{ID: c.ID, Source: c.SourceSlot, Target: c.TargetSlot})
		}
		d.Layout.Steps[s.ID] = sl
	}
	return d
}

// FromDraft rebuilds a graph from a draft. Recorded choice ids and slots are
// reused when the connection rules still admit them; otherwise the choice
// gets a fresh id and falls back to the slots FromDocument would derive.
// The open label edit is left to the caller.
func FromDraft(d Draft, opts ...graph.Option) (domain.Metadata, *graph.Graph, error) {
	meta, g, err := build(d.Document, d.Layout, opts)
	if err != nil || d.Layout == nil {
		return meta, g, err
	}
	g.SetGeneralErrors(d.Layout.GeneralErrors)
	return meta, g, nil
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := Draft{Document: d.Document.Clone()}
	if d.Layout == nil {
		return out
	}
	out.Layout = &Layout{
		Steps:         make(map[string]StepLayout, len(d.Layout.Steps)),
		GeneralErrors: slices.Clone(d.Layout.GeneralErrors),
	}
	if d.Layout.LabelEdit != nil {
		edit := *d.Layout.LabelEdit
		out.Layout.LabelEdit = &edit
	}
	for id, sl := range d.Layout.Steps {
		out.Layout.Steps[id] = StepLayout{
			Position: sl.Position,
			Choices:  slices.Clone(sl.Choices),
			Errors:   slices.Clone(sl.Errors),
		}
	}
	return out
}

func (l *Layout) step(id string) (StepLayout, bool) {
	if l == nil {
		return StepLayout{}, false
	}
	sl, ok := l.Steps[id]
	return sl, ok
}
