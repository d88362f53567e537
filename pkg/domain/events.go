package domain

import (
	"context"
	"time"
)

// NoticeLevel classifies a user-facing notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient, toast-level message for the user.
type Notice struct {
	Level       NoticeLevel `json:"level"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
}

// SaveOutcome describes how a save attempt ended.
type SaveOutcome string

const (
	SaveCreated  SaveOutcome = "created"
	SaveUpdated  SaveOutcome = "updated"
	SaveRejected SaveOutcome = "rejected"
	SaveFailed   SaveOutcome = "failed"
)

// RejectionEvent is emitted when a proposed choice is refused.
type RejectionEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	SourceStepID string    `json:"source"`
	TargetStepID string    `json:"target"`
	Reason       error     `json:"-"`
}

// SaveEvent is emitted when a save attempt completes.
type SaveEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	ScenarioID string        `json:"scenario_id"`
	Outcome    SaveOutcome   `json:"outcome"`
	Duration   time.Duration `json:"duration"`
}

// LayoutEvent is emitted after the layout engine ran.
type LayoutEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Nodes     int           `json:"nodes"`
	Edges     int           `json:"edges"`
	Ranks     int           `json:"ranks"`
	Duration  time.Duration `json:"duration"`
}

// LoadEvent is emitted when an existing scenario is opened.
type LoadEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	ScenarioID string    `json:"scenario_id"`
	Err        error     `json:"-"`
}

// EditorHooks defines callbacks for editor observability.
type EditorHooks struct {
	OnChoiceRejected func(context.Context, *RejectionEvent)
	OnSave           func(context.Context, *SaveEvent)
	OnLayout         func(context.Context, *LayoutEvent)
	OnLoad           func(context.Context, *LoadEvent)
}
