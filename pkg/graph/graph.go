// Package graph holds the canonical in-memory scenario graph.
//
// Every mutation of steps and choices goes through a Graph so the structural
// invariants (fan-out, per-slot exclusivity, no dangling edges, non-empty
// labels) are enforced at a single boundary. A mutation either applies fully,
// cascades included, or is rejected before any state changes.
//
// Graph is not safe for concurrent use; the editor shell serializes access.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/google/uuid"
)

// Graph is the scenario graph model.
type Graph struct {
	order   []string
	steps   map[string]*domain.Step
	choices []domain.Choice

	generalErrors []string

	newID  func() string
	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(g *Graph) {
		if gen != nil {
			g.newID = gen
		}
	}
}

// WithLogger sets the logger used for mutation traces.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		steps:  make(map[string]*domain.Step),
		newID:  func() string { return uuid.New().String() },
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddStep creates a step with default title and description at pos.
func (g *Graph) AddStep(pos domain.Position) domain.Step {
	return g.AddStepWith(domain.DefaultStepTitle, "", pos)
}

// AddStepWith creates a step with the given title and description at pos.
func (g *Graph) AddStepWith(title, description string, pos domain.Position) domain.Step {
	id := g.newID()
	for g.steps[id] != nil {
		id = g.newID()
	}
	step := &domain.Step{
		ID:          id,
		Title:       title,
		Description: description,
		Position:    pos,
	}
	g.order = append(g.order, step.ID)
	g.steps[step.ID] = step
	g.logger.Debug("step added", "step_id", step.ID)
	return step.Clone()
}

// InsertStep adds a fully formed step, keeping its id.
// It is used when rebuilding a graph from a stored document.
func (g *Graph) InsertStep(step domain.Step) error {
	if step.ID == "" {
		return fmt.Errorf("insert step: %w: empty id", domain.ErrStepNotFound)
	}
	if _, exists := g.steps[step.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateStep, step.ID)
	}
	s := step.Clone()
	g.order = append(g.order, s.ID)
	g.steps[s.ID] = &s
	return nil
}

// UpdateStep merges patch into the identified step.
// It is a no-op returning false if id is absent. Errors are only touched
// when the patch sets them.
func (g *Graph) UpdateStep(id string, patch domain.StepPatch) bool {
	step, ok := g.steps[id]
	if !ok {
		return false
	}
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Description != nil {
		step.Description = *patch.Description
	}
	if patch.ClearLocation {
		step.Location = nil
	}
	if patch.Location != nil {
		loc := *patch.Location
		step.Location = &loc
	}
	if patch.Position != nil {
		step.Position = *patch.Position
	}
	if patch.Errors != nil {
		step.Errors = normalizeErrors(*patch.Errors)
	}
	return true
}

// DeleteStep removes the step and every choice that references it.
func (g *Graph) DeleteStep(id string) bool {
	if _, ok := g.steps[id]; !ok {
		return false
	}
	delete(g.steps, id)
	for i, sid := range g.order {
		if sid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	kept := g.choices[:0]
	removed := 0
	for _, c := range g.choices {
		if c.Touches(id) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	g.choices = kept
	g.logger.Debug("step deleted", "step_id", id, "choices_removed", removed)
	return true
}

// AddChoice admits a new choice through the connection rule engine.
// On rejection nothing is mutated and the reason is returned.
func (g *Graph) AddChoice(p rules.Proposal, label string) (domain.Choice, error) {
	return g.insertChoice("", p, label)
}

// InsertChoice admits a choice like AddChoice but keeps the given id.
// It is used when restoring a session from its draft.
func (g *Graph) InsertChoice(id string, p rules.Proposal, label string) (domain.Choice, error) {
	if id == "" {
		return domain.Choice{}, errors.New("insert choice: empty id")
	}
	if g.choiceIndex(id) >= 0 {
		return domain.Choice{}, fmt.Errorf("insert choice: duplicate id %s", id)
	}
	return g.insertChoice(id, p, label)
}

func (g *Graph) insertChoice(id string, p rules.Proposal, label string) (domain.Choice, error) {
	if _, ok := g.steps[p.SourceStepID]; !ok {
		return domain.Choice{}, fmt.Errorf("source %s: %w", p.SourceStepID, domain.ErrStepNotFound)
	}
	if _, ok := g.steps[p.TargetStepID]; !ok {
		return domain.Choice{}, fmt.Errorf("target %s: %w", p.TargetStepID, domain.ErrStepNotFound)
	}
	if err := rules.Admit(g.choices, p); err != nil {
		g.logger.Debug("choice rejected", "source", p.SourceStepID, "target", p.TargetStepID, "reason", err)
		return domain.Choice{}, err
	}
	clean, err := checkLabel(label)
	if err != nil {
		return domain.Choice{}, err
	}

	if id == "" {
		id = g.newID()
		for g.choiceIndex(id) >= 0 {
			id = g.newID()
		}
	}
	c := domain.Choice{
		ID:           id,
		SourceStepID: p.SourceStepID,
		SourceSlot:   p.SourceSlot,
		TargetStepID: p.TargetStepID,
		TargetSlot:   p.TargetSlot,
		Label:        clean,
	}
	g.choices = append(g.choices, c)
	g.logger.Debug("choice added", "choice_id", c.ID, "source", c.SourceStepID, "target", c.TargetStepID)
	return c, nil
}

// UpdateChoiceLabel replaces a choice label. A label that is empty after
// trimming deletes the choice instead. Labels longer than
// domain.MaxLabelLength are rejected without mutation.
func (g *Graph) UpdateChoiceLabel(id, label string) error {
	idx := g.choiceIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, id)
	}
	if strings.TrimSpace(label) == "" {
		g.DeleteChoice(id)
		return nil
	}
	clean, err := checkLabel(label)
	if err != nil {
		return err
	}
	g.choices[idx].Label = clean
	return nil
}

// DeleteChoice removes the choice. It returns false if id is absent.
func (g *Graph) DeleteChoice(id string) bool {
	idx := g.choiceIndex(id)
	if idx < 0 {
		return false
	}
	g.choices = append(g.choices[:idx], g.choices[idx+1:]...)
	g.logger.Debug("choice deleted", "choice_id", id)
	return true
}

// ClearAllErrors drops every step-level and scenario-level error.
func (g *Graph) ClearAllErrors() {
	for _, s := range g.steps {
		s.Errors = nil
	}
	g.generalErrors = nil
}

// SetStepErrors attaches validation messages to a step.
func (g *Graph) SetStepErrors(id string, messages []string) bool {
	step, ok := g.steps[id]
	if !ok {
		return false
	}
	step.Errors = normalizeErrors(messages)
	return true
}

// SetGeneralErrors replaces the scenario-level error messages.
func (g *Graph) SetGeneralErrors(messages []string) {
	g.generalErrors = normalizeErrors(messages)
}

// GeneralErrors returns the scenario-level error messages.
func (g *Graph) GeneralErrors() []string {
	return append([]string(nil), g.generalErrors...)
}

// HasErrors reports whether any step or the scenario carries errors.
func (g *Graph) HasErrors() bool {
	if len(g.generalErrors) > 0 {
		return true
	}
	for _, s := range g.steps {
		if s.HasErrors() {
			return true
		}
	}
	return false
}

// SetPositions moves steps to the given coordinates. Unknown ids are ignored.
func (g *Graph) SetPositions(positions map[string]domain.Position) {
	for id, pos := range positions {
		if s, ok := g.steps[id]; ok {
			s.Position = pos
		}
	}
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.order)
}

// Step returns a copy of the identified step.
func (g *Graph) Step(id string) (domain.Step, bool) {
	s, ok := g.steps[id]
	if !ok {
		return domain.Step{}, false
	}
	return s.Clone(), true
}

// Steps returns copies of all steps in creation order.
func (g *Graph) Steps() []domain.Step {
	out := make([]domain.Step, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.steps[id].Clone())
	}
	return out
}

// Choice returns the identified choice.
func (g *Graph) Choice(id string) (domain.Choice, bool) {
	idx := g.choiceIndex(id)
	if idx < 0 {
		return domain.Choice{}, false
	}
	return g.choices[idx], true
}

// ChoiceLabel returns the current label of a choice.
func (g *Graph) ChoiceLabel(id string) (string, bool) {
	c, ok := g.Choice(id)
	return c.Label, ok
}

// Choices returns all choices in insertion order.
func (g *Graph) Choices() []domain.Choice {
	return append([]domain.Choice(nil), g.choices...)
}

// ChoicesFrom returns the choices leaving stepID in insertion order.
func (g *Graph) ChoicesFrom(stepID string) []domain.Choice {
	var out []domain.Choice
	for _, c := range g.choices {
		if c.SourceStepID == stepID {
			out = append(out, c)
		}
	}
	return out
}

// FreeOutputSlot returns the lowest unused output slot of a step.
func (g *Graph) FreeOutputSlot(stepID string) (int, bool) {
	return rules.FreeOutputSlot(g.choices, stepID)
}

// FreeInputSlot returns the first unused input slot of a step, probing from preferred.
func (g *Graph) FreeInputSlot(stepID string, preferred int) (int, bool) {
	return rules.FreeInputSlot(g.choices, stepID, preferred)
}

func (g *Graph) choiceIndex(id string) int {
	for i, c := range g.choices {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func checkLabel(label string) (string, error) {
	clean := strings.TrimSpace(label)
	if clean == "" {
		return "", domain.ErrLabelEmpty
	}
	if utf8.RuneCountInString(clean) > domain.MaxLabelLength {
		return "", domain.ErrLabelTooLong
	}
	return clean, nil
}

func normalizeErrors(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	return append([]string(nil), messages...)
}
