package memory

import (
	"context"
	"sync"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
)

// DraftStore implements ports.DraftStore in memory.
// Safe for concurrent use.
type DraftStore struct {
	data map[string]document.Draft
	mu   sync.RWMutex
}

// NewDraftStore creates an empty draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		data: make(map[string]document.Draft),
	}
}

// Save stores a copy of the draft.
func (s *DraftStore) Save(ctx context.Context, sessionID string, draft document.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = draft.Clone()
	return nil
}

// Load returns a copy so callers cannot mutate the stored draft.
func (s *DraftStore) Load(ctx context.Context, sessionID string) (document.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.data[sessionID]
	if !ok {
		return document.Draft{}, domain.ErrSessionNotFound
	}
	return draft.Clone(), nil
}

// Delete removes the draft.
func (s *DraftStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session ids.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
