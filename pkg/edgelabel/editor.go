// Package edgelabel implements the modal editor used to rename or delete a
// single choice.
//
// The editor is either Closed or Editing one choice with a draft label.
// Opening another choice discards the current draft without committing it.
package edgelabel

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/sceneweaver/pkg/domain"
)

// State is the modal state of the editor.
type State int

const (
	Closed State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "closed"
}

// Key is a keyboard event forwarded by the canvas.
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Outcome reports what a closing transition did to the graph.
type Outcome int

const (
	// Unchanged means the editor closed (or stayed put) without touching the graph.
	Unchanged Outcome = iota
	Committed
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Deleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Target is the graph surface the editor mutates.
type Target interface {
	ChoiceLabel(id string) (string, bool)
	UpdateChoiceLabel(id, label string) error
	DeleteChoice(id string) bool
}

// Editor is the edge label state machine. It is not safe for concurrent use.
type Editor struct {
	target Target
	state  State
	edgeID string
	draft  string
}

// New returns a closed editor bound to target.
func New(target Target) *Editor {
	return &Editor{target: target}
}

func (e *Editor) State() State   { return e.state }
func (e *Editor) EdgeID() string { return e.edgeID }
func (e *Editor) Draft() string  { return e.draft }

// IsEditing reports whether the editor is open on edgeID.
func (e *Editor) IsEditing(edgeID string) bool {
	return e.state == Editing && e.edgeID == edgeID
}

// Open starts editing edgeID with the draft set to its current label.
// Any edit in progress is discarded.
func (e *Editor) Open(edgeID string) error {
	label, ok := e.target.ChoiceLabel(edgeID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, edgeID)
	}
	e.state = Editing
	e.edgeID = edgeID
	e.draft = Sanitize(label)
	return nil
}

// Type replaces the draft with the current content of the input box.
// Newlines are stripped and the result is capped at domain.MaxLabelLength
// runes. It returns false when the editor is closed.
func (e *Editor) Type(value string) bool {
	if e.state != Editing {
		return false
	}
	e.draft = Sanitize(value)
	return true
}

// Confirm commits the draft. An empty draft deletes the choice.
// The editor is closed afterwards in every case.
func (e *Editor) Confirm() (Outcome, error) {
	if e.state != Editing {
		return Unchanged, nil
	}
	id, draft := e.edgeID, e.draft
	e.close()

	if strings.TrimSpace(draft) == "" {
		if !e.target.DeleteChoice(id) {
			return Unchanged, fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, id)
		}
		return Deleted, nil
	}
	if err := e.target.UpdateChoiceLabel(id, draft); err != nil {
		return Unchanged, err
	}
	return Committed, nil
}

// Cancel closes the editor and discards the draft.
func (e *Editor) Cancel() {
	e.close()
}

// Delete removes the edited choice regardless of the draft.
func (e *Editor) Delete() (Outcome, error) {
	if e.state != Editing {
		return Unchanged, nil
	}
	id := e.edgeID
	e.close()
	if !e.target.DeleteChoice(id) {
		return Unchanged, fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, id)
	}
	return Deleted, nil
}

// HandleKey maps Enter to Confirm and Escape to Cancel. Other keys are ignored.
func (e *Editor) HandleKey(k Key) (Outcome, error) {
	switch k {
	case KeyEnter:
		return e.Confirm()
	case KeyEscape:
		e.Cancel()
	}
	return Unchanged, nil
}

// Forget closes the editor if it is editing edgeID. The shell calls it when
// a choice disappears through another path (step or choice deletion).
func (e *Editor) Forget(edgeID string) {
	if e.IsEditing(edgeID) {
		e.close()
	}
}

func (e *Editor) close() {
	e.state = Closed
	e.edgeID = ""
	e.draft = ""
}

// Sanitize strips line breaks and caps s at domain.MaxLabelLength runes.
func Sanitize(s string) string {
	s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	if utf8.RuneCountInString(s) <= domain.MaxLabelLength {
		return s
	}
	return string([]rune(s)[:domain.MaxLabelLength])
}
