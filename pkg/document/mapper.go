package document

import (
	"fmt"
	"strings"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/graph"
	"github.com/aretw0/sceneweaver/pkg/rules"
)

// View is the read side of a scenario graph.
type View interface {
	Steps() []domain.Step
	ChoicesFrom(stepID string) []domain.Choice
}

// ToDocument serializes meta and the graph. Choices are grouped by source
// step, in creation order.
func ToDocument(meta domain.Metadata, g View) Document {
	doc := Document{
		ID:          meta.ID,
		CreatedBy:   UserRef{ID: meta.CreatedBy},
		Title:       meta.Title,
		Description: meta.Description,
		Steps:       []StepDoc{},
	}
	for _, s := range g.Steps() {
		sd := StepDoc{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Choices:     []ChoiceDoc{},
			Location:    locationDoc(s.Location),
		}
		for _, c := range g.ChoicesFrom(s.ID) {
			sd.Choices = append(sd.Choices, ChoiceDoc{Text: c.Label, Next: c.TargetStepID})
		}
		doc.Steps = append(doc.Steps, sd)
	}
	return doc
}

// FromScenario serializes a snapshot.
func FromScenario(s domain.Scenario) Document {
	return ToDocument(s.Metadata, snapshotView{s})
}

type snapshotView struct{ s domain.Scenario }

func (v snapshotView) Steps() []domain.Step                      { return v.s.Steps }
func (v snapshotView) ChoicesFrom(stepID string) []domain.Choice { return v.s.ChoicesFrom(stepID) }

// FromDocument rebuilds a graph from doc. Steps keep their ids; choices get
// fresh ids. The source slot of the i-th choice of a step is i mod 4 and its
// target slot is the first free input port probing from the same value.
//
// A document that cannot be represented (duplicate step ids, more than four
// choices on a step, more than four choices into a step, a choice pointing
// to an unknown step) is refused.
func FromDocument(doc Document, opts ...graph.Option) (domain.Metadata, *graph.Graph, error) {
	return build(doc, nil, opts)
}

// build rebuilds the graph, taking positions, errors and slots from layout
// when it has them.
func build(doc Document, layout *Layout, opts []graph.Option) (domain.Metadata, *graph.Graph, error) {
	meta := domain.Metadata{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		CreatedBy:   doc.CreatedBy.ID,
	}

	g := graph.New(opts...)
	for _, sd := range doc.Steps {
		step := domain.Step{
			ID:          sd.ID,
			Title:       sd.Title,
			Description: sd.Description,
			Location:    location(sd.Location),
		}
		if sl, ok := layout.step(sd.ID); ok {
			step.Position = sl.Position
			step.Errors = sl.Errors
		}
		if err := g.InsertStep(step); err != nil {
			return meta, nil, err
		}
	}

	for _, sd := range doc.Steps {
		if len(sd.Choices) > domain.MaxChoicesPerStep {
			return meta, nil, fmt.Errorf("step %s has %d choices: %w", sd.ID, len(sd.Choices), domain.ErrFanOutLimit)
		}
		recorded, _ := layout.step(sd.ID)
		if len(recorded.Choices) != len(sd.Choices) {
			recorded.Choices = nil
		}
		for i, cd := range sd.Choices {
			if _, ok := g.Step(cd.Next); !ok {
				return meta, nil, fmt.Errorf("step %s choice %d: next %q: %w", sd.ID, i, cd.Next, domain.ErrStepNotFound)
			}
			label := loadLabel(cd.Text)
			if recorded.Choices != nil {
				cl := recorded.Choices[i]
				p := rules.Proposal{SourceStepID: sd.ID, SourceSlot: cl.Source, TargetStepID: cd.Next, TargetSlot: cl.Target}
				if restoreChoice(g, cl.ID, p, label) {
					continue
				}
			}
			slot := i % domain.SlotCount
			if recorded.Choices != nil {
				if free, ok := g.FreeOutputSlot(sd.ID); ok {
					slot = free
				}
			}
			in, ok := g.FreeInputSlot(cd.Next, slot)
			if !ok {
				return meta, nil, fmt.Errorf("step %s choice %d into %s: %w", sd.ID, i, cd.Next, domain.ErrInputPortOccupied)
			}
			p := rules.Proposal{SourceStepID: sd.ID, SourceSlot: slot, TargetStepID: cd.Next, TargetSlot: in}
			if _, err := g.AddChoice(p, label); err != nil {
				return meta, nil, fmt.Errorf("step %s choice %d: %w", sd.ID, i, err)
			}
		}
	}
	return meta, g, nil
}

// restoreChoice adds a recorded choice, keeping its id when it has one.
func restoreChoice(g *graph.Graph, id string, p rules.Proposal, label string) bool {
	var err error
	if id != "" {
		_, err = g.InsertChoice(id, p, label)
	} else {
		_, err = g.AddChoice(p, label)
	}
	return err == nil
}

// loadLabel keeps a stored label loadable: surrounding spaces are trimmed
// as the editor does for typed labels, blanks become the default text and
// overlong labels are cut to the editor bound.
func loadLabel(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.DefaultChoiceText
	}
	if r := []rune(text); len(r) > domain.MaxLabelLength {
		return strings.TrimSpace(string(r[:domain.MaxLabelLength]))
	}
	return text
}

func locationDoc(loc *domain.Location) *LocationDoc {
	if loc == nil {
		return nil
	}
	return &LocationDoc{
		Title:       loc.Title,
		Description: loc.Description,
		Latitude:    Coordinate(loc.Latitude),
		Longitude:   Coordinate(loc.Longitude),
	}
}

func location(ld *LocationDoc) *domain.Location {
	if ld == nil {
		return nil
	}
	return &domain.Location{
		Title:       ld.Title,
		Description: ld.Description,
		Latitude:    float64(ld.Latitude),
		Longitude:   float64(ld.Longitude),
	}
}
