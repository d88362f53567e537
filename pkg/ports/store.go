package ports

import (
	"context"

	"github.com/aretw0/sceneweaver/pkg/document"
)

// ScenarioStore is the system of record for scenario documents.
// Implementations that validate documents return *domain.RemoteValidationError
// carrying the store's error payload when a document is refused.
type ScenarioStore interface {
	// Create submits a new document and returns the stored version, which
	// carries the id assigned by the store.
	Create(ctx context.Context, doc document.Document) (document.Document, error)

	// Update replaces the document identified by id.
	Update(ctx context.Context, id string, doc document.Document) (document.Document, error)

	// Get retrieves a document with its steps and choices expanded.
	// Returns domain.ErrScenarioNotFound if it does not exist.
	Get(ctx context.Context, id string) (document.Document, error)

	// List returns a summary of every visible scenario.
	List(ctx context.Context) ([]document.Summary, error)

	// Delete removes the document identified by id.
	Delete(ctx context.Context, id string) error
}

// DraftStore persists the working copy of editing sessions.
// Drafts carry the wire document plus positions, slots and errors, so a
// session restored from its draft looks as it was left.
type DraftStore interface {
	// Save persists the draft of a session.
	Save(ctx context.Context, sessionID string, draft document.Draft) error

	// Load retrieves the draft of a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (document.Draft, error)

	// Delete removes the draft of a session.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
