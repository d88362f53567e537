package domain

import (
	"errors"
	"fmt"
)

// Structural rejections returned by the connection rule engine.
// Their text is the reason shown to the user.
var (
	ErrFanOutLimit        = errors.New("fan-out limit reached")
	ErrOutputPortOccupied = errors.New("output port occupied")
	ErrInputPortOccupied  = errors.New("input port occupied")
	ErrSlotOutOfRange     = errors.New("slot out of range")
)

// Input constraint rejections.
var (
	ErrLabelEmpty   = errors.New("choice label is empty")
	ErrLabelTooLong = errors.New("choice label exceeds 50 characters")
)

// Lookup failures.
var (
	ErrStepNotFound     = errors.New("step not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrDuplicateStep    = errors.New("duplicate step id")
	ErrSessionNotFound  = errors.New("session not found")
	ErrScenarioNotFound = errors.New("scenario not found")
)

// Remote failures.
var (
	// ErrLoadFailed marks the blocking "cannot load" state of the editor.
	ErrLoadFailed = errors.New("cannot load scenario")
	// ErrSaveInFlight is returned when a save is requested while another is outstanding.
	ErrSaveInFlight  = errors.New("save already in progress")
	ErrUnauthorized  = errors.New("not authorized")
	ErrNoStore       = errors.New("no scenario store configured")
	ErrRemoteFailure = errors.New("remote store failure")
)

// IsRejection reports whether err is a structural or input-constraint
// rejection, i.e. a recoverable refusal that left the graph unchanged.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrFanOutLimit, ErrOutputPortOccupied, ErrInputPortOccupied,
		ErrSlotOutOfRange, ErrLabelEmpty, ErrLabelTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RemoteValidationError is returned by a ScenarioStore when the store
// rejected a document. Payload is the raw JSON error body.
type RemoteValidationError struct {
	Status  int
	Payload []byte
}

func (e *RemoteValidationError) Error() string {
	return fmt.Sprintf("scenario rejected by store (status %d)", e.Status)
}
