package sceneweaver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/edgelabel"
	"github.com/aretw0/sceneweaver/pkg/layout"
	"github.com/aretw0/sceneweaver/pkg/rules"
)

// effects are collected under the lock and delivered after it is released,
// so notifiers and hooks may call back into the editor.
type effects struct {
	notices   []domain.Notice
	rejection *domain.RejectionEvent
	layout    *domain.LayoutEvent
}

func (fx *effects) notify(level domain.NoticeLevel, title, desc string) {
	fx.notices = append(fx.notices, domain.Notice{Level: level, Title: title, Description: desc})
}

func (e *Editor) flush(fx effects) {
	ctx := context.Background()
	if fx.rejection != nil && e.hooks.OnChoiceRejected != nil {
		e.hooks.OnChoiceRejected(ctx, fx.rejection)
	}
	if fx.layout != nil && e.hooks.OnLayout != nil {
		e.hooks.OnLayout(ctx, fx.layout)
	}
	for _, n := range fx.notices {
		e.notifier.Notify(ctx, n)
	}
}

// Metadata returns the scenario-level fields.
func (e *Editor) Metadata() domain.Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// SetTitle sets the scenario title. Line breaks are dropped and the title
// is capped at domain.MaxTitleLength runes.
func (e *Editor) SetTitle(title string) {
	title = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(title)
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		title = string([]rune(title)[:domain.MaxTitleLength])
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta.Title = title
}

// SetDescription sets the scenario description.
func (e *Editor) SetDescription(desc string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta.Description = desc
}

// AddStep adds a loose step with default content at pos.
func (e *Editor) AddStep(pos domain.Position) domain.Step {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	step := e.graph.AddStep(pos)
	fx.notify(domain.NoticeSuccess, "Loose step added", "")
	return step
}

// AddLinkedStep creates a child of parentID placed one row below it and
// connects them through the parent's lowest free output slot with the
// default choice text. It is rejected when the parent has no free output.
func (e *Editor) AddLinkedStep(parentID string) (domain.Step, domain.Choice, error) {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	parent, ok := e.graph.Step(parentID)
	if !ok {
		return domain.Step{}, domain.Choice{}, fmt.Errorf("%w: %s", domain.ErrStepNotFound, parentID)
	}
	if rules.FanOut(e.graph.Choices(), parentID) >= domain.MaxChoicesPerStep {
		e.reject(&fx, rules.Proposal{SourceStepID: parentID}, domain.ErrFanOutLimit)
		return domain.Step{}, domain.Choice{}, domain.ErrFanOutLimit
	}
	out, _ := e.graph.FreeOutputSlot(parentID)

	pos := domain.Position{X: parent.Position.X, Y: parent.Position.Y + domain.LinkedStepOffset}
	child := e.graph.AddStepWith(domain.LinkedStepTitle, "", pos)
	choice, err := e.graph.AddChoice(rules.Proposal{
		SourceStepID: parentID,
		SourceSlot:   out,
		TargetStepID: child.ID,
		TargetSlot:   0,
	}, domain.DefaultChoiceText)
	if err != nil {
		// Keep the mutation atomic.
		e.graph.DeleteStep(child.ID)
		return domain.Step{}, domain.Choice{}, err
	}
	fx.notify(domain.NoticeSuccess, "Step added", "")
	return child, choice, nil
}

// EditStep applies a user edit to a step and clears that step's errors.
func (e *Editor) EditStep(id string, patch domain.StepPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	patch.Errors = domain.Ptr([]string(nil))
	if !e.graph.UpdateStep(id, patch) {
		return fmt.Errorf("%w: %s", domain.ErrStepNotFound, id)
	}
	return nil
}

// MoveStep repositions a step. Moving is cosmetic and keeps errors.
func (e *Editor) MoveStep(id string, pos domain.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.UpdateStep(id, domain.StepPatch{Position: &pos}) {
		return fmt.Errorf("%w: %s", domain.ErrStepNotFound, id)
	}
	return nil
}

// DeleteStep removes a step and every choice touching it.
func (e *Editor) DeleteStep(id string) bool {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.DeleteStep(id) {
		return false
	}
	e.syncLabelEditor()
	fx.notify(domain.NoticeSuccess, "Step deleted", "")
	return true
}

// Connect proposes a new choice. An empty label gets the default text.
// Rejections leave the graph unchanged and are returned as the reason.
func (e *Editor) Connect(p rules.Proposal, label string) (domain.Choice, error) {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(label) == "" {
		label = domain.DefaultChoiceText
	}
	c, err := e.graph.AddChoice(p, label)
	if err != nil {
		if domain.IsRejection(err) || errors.Is(err, domain.ErrStepNotFound) {
			e.reject(&fx, p, err)
		}
		return domain.Choice{}, err
	}
	fx.notify(domain.NoticeSuccess, "Steps connected", "")
	return c, nil
}

// ConnectNext connects source to target through the first free ports,
// the way a drag from a step onto another does when no port is picked.
func (e *Editor) ConnectNext(sourceID, targetID, label string) (domain.Choice, error) {
	e.mu.Lock()
	out, okOut := e.graph.FreeOutputSlot(sourceID)
	in, okIn := e.graph.FreeInputSlot(targetID, 0)
	e.mu.Unlock()

	p := rules.Proposal{SourceStepID: sourceID, SourceSlot: out, TargetStepID: targetID, TargetSlot: in}
	if !okOut {
		// Let the rule engine report the fan-out limit.
		p.SourceSlot = 0
	}
	if !okIn {
		p.TargetSlot = 0
	}
	return e.Connect(p, label)
}

func (e *Editor) reject(fx *effects, p rules.Proposal, err error) {
	e.log().Warn("connection rejected", "source", p.SourceStepID, "target", p.TargetStepID, "reason", err)
	fx.rejection = &domain.RejectionEvent{
		Timestamp:    time.Now(),
		SourceStepID: p.SourceStepID,
		TargetStepID: p.TargetStepID,
		Reason:       err,
	}
	fx.notify(domain.NoticeError, "Connection rejected", err.Error())
}

// RenameChoice sets a choice label directly. An empty label deletes the
// choice; an overlong one is rejected without change.
func (e *Editor) RenameChoice(id, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.graph.UpdateChoiceLabel(id, label); err != nil {
		return err
	}
	e.syncLabelEditor()
	return nil
}

// DeleteChoice removes a choice.
func (e *Editor) DeleteChoice(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.DeleteChoice(id) {
		return false
	}
	e.labels.Forget(id)
	return true
}

// syncLabelEditor closes the label editor if its choice disappeared.
func (e *Editor) syncLabelEditor() {
	if e.labels.State() != edgelabel.Editing {
		return
	}
	if _, ok := e.graph.Choice(e.labels.EdgeID()); !ok {
		e.labels.Forget(e.labels.EdgeID())
	}
}

// LabelState is a snapshot of the edge label editor.
type LabelState struct {
	State  string `json:"state"`
	EdgeID string `json:"edge_id,omitempty"`
	Draft  string `json:"draft,omitempty"`
}

// LabelEditor returns the current state of the edge label editor.
func (e *Editor) LabelEditor() LabelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return LabelState{State: e.labels.State().String(), EdgeID: e.labels.EdgeID(), Draft: e.labels.Draft()}
}

// EditChoice opens the label editor on a choice, discarding any other draft.
func (e *Editor) EditChoice(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.labels.Open(id)
}

// TypeLabel replaces the label draft. It returns false when no edit is open.
func (e *Editor) TypeLabel(value string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.labels.Type(value)
}

// ConfirmLabel commits the draft; an empty draft deletes the choice.
func (e *Editor) ConfirmLabel() (edgelabel.Outcome, error) {
	return e.labelTransition(func(l *edgelabel.Editor) (edgelabel.Outcome, error) { return l.Confirm() })
}

// CancelLabel closes the label editor without committing.
func (e *Editor) CancelLabel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labels.Cancel()
}

// DeleteEditedChoice deletes the choice being edited, ignoring the draft.
func (e *Editor) DeleteEditedChoice() (edgelabel.Outcome, error) {
	return e.labelTransition(func(l *edgelabel.Editor) (edgelabel.Outcome, error) { return l.Delete() })
}

// HandleKey forwards Enter/Escape to the label editor.
func (e *Editor) HandleKey(k edgelabel.Key) (edgelabel.Outcome, error) {
	return e.labelTransition(func(l *edgelabel.Editor) (edgelabel.Outcome, error) { return l.HandleKey(k) })
}

func (e *Editor) labelTransition(fn func(*edgelabel.Editor) (edgelabel.Outcome, error)) (edgelabel.Outcome, error) {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := fn(e.labels)
	switch out {
	case edgelabel.Committed:
		fx.notify(domain.NoticeSuccess, "Choice updated", "")
	case edgelabel.Deleted:
		fx.notify(domain.NoticeSuccess, "Choice deleted", "")
	}
	return out, err
}

// AutoLayout recomputes every step position.
func (e *Editor) AutoLayout() domain.LayoutEvent {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := e.runLayout()
	fx.layout = &ev
	fx.notify(domain.NoticeInfo, "Layout updated", "")
	return ev
}

// runLayout lays out the graph in place. Callers hold e.mu or own the
// editor exclusively.
func (e *Editor) runLayout() domain.LayoutEvent {
	start := time.Now()
	steps := e.graph.Steps()
	choices := e.graph.Choices()

	nodes := make([]layout.Node, len(steps))
	for i, s := range steps {
		nodes[i] = layout.Node{ID: s.ID, Width: e.nodeWidth, Height: e.nodeHeight}
	}
	edges := make([]layout.Edge, len(choices))
	for i, c := range choices {
		edges[i] = layout.Edge{Source: c.SourceStepID, Target: c.TargetStepID}
	}

	res := layout.Compute(nodes, edges, e.layoutCfg)
	e.graph.SetPositions(res.Positions)

	ev := domain.LayoutEvent{
		Timestamp: start,
		Nodes:     len(nodes),
		Edges:     len(edges),
		Ranks:     len(res.Ranks),
		Duration:  time.Since(start),
	}
	e.log().Debug("layout computed", "nodes", ev.Nodes, "edges", ev.Edges, "ranks", ev.Ranks, "crossings", res.Crossings)
	return ev
}

// ClearErrors drops every step-level and scenario-level error.
func (e *Editor) ClearErrors() {
	var fx effects
	defer func() { e.flush(fx) }()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.graph.ClearAllErrors()
	fx.notify(domain.NoticeInfo, "Errors cleared", "")
}

// HasErrors reports whether any step or the scenario carries errors.
func (e *Editor) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.HasErrors()
}

// Step returns a copy of a step.
func (e *Editor) Step(id string) (domain.Step, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Step(id)
}

// Snapshot returns a read-only copy of the scenario.
func (e *Editor) Snapshot() domain.Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Scenario{
		Metadata:      e.meta,
		Steps:         e.graph.Steps(),
		Choices:       e.graph.Choices(),
		GeneralErrors: e.graph.GeneralErrors(),
	}
}

// Document serializes the scenario to its wire form.
func (e *Editor) Document() document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return document.ToDocument(e.meta, e.graph)
}

// Draft captures the scenario with its canvas state for session storage,
// including an open label edit.
func (e *Editor) Draft() document.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := document.ToDraft(e.meta, e.graph)
	if e.labels.State() == edgelabel.Editing {
		d.Layout.LabelEdit = &document.LabelEdit{ChoiceID: e.labels.EdgeID(), Draft: e.labels.Draft()}
	}
	return d
}
