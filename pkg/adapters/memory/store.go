// Package memory provides in-process implementations of the store ports.
// They are used by tests, by the HTTP demo server and as a scratch library.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/google/uuid"
)

// ScenarioStore implements ports.ScenarioStore in memory. Submissions are
// validated like the remote store does, so rejected saves carry the same
// error payload shape.
type ScenarioStore struct {
	mu    sync.RWMutex
	docs  map[string]document.Document
	order []string

	newID func() string
	now   func() time.Time
}

type StoreOption func(*ScenarioStore)

// WithIDGenerator replaces the uuid generator for scenario ids.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *ScenarioStore) { s.newID = gen }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ScenarioStore) { s.now = now }
}

// NewScenarioStore creates an empty store.
func NewScenarioStore(opts ...StoreOption) *ScenarioStore {
	s := &ScenarioStore{
		docs:  make(map[string]document.Document),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new document under a fresh id.
func (s *ScenarioStore) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := document.StoreCheck(doc); err != nil {
		return document.Document{}, err
	}

	stored := doc.Clone()
	stored.ID = s.newID()
	stored.CreatedAt = s.now().UTC()
	stored.ModifiedAt = stored.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return stored.Clone(), nil
}

// Update validates and replaces a stored document. The id, creator and
// creation time stay as stored.
func (s *ScenarioStore) Update(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	if err := document.StoreCheck(doc); err != nil {
		return document.Document{}, err
	}

	stored := doc.Clone()
	stored.ID = id
	stored.CreatedBy = prev.CreatedBy
	stored.CreatedAt = prev.CreatedAt
	stored.ModifiedAt = s.now().UTC()
	s.docs[id] = stored
	return stored.Clone(), nil
}

// Get returns a copy of a stored document.
func (s *ScenarioStore) Get(ctx context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	return doc.Clone(), nil
}

// List returns summaries in creation order.
func (s *ScenarioStore) List(ctx context.Context) ([]document.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Summary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, document.Summarize(s.docs[id]))
	}
	return out, nil
}

// Delete removes a stored document.
func (s *ScenarioStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	delete(s.docs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
