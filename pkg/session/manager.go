package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	drafts ports.DraftStore

	mu    sync.Mutex            // guards locks and live
	locks map[string]*lockEntry // active locks
	live  map[string]*sceneweaver.Editor

	locker     ports.DistributedLocker
	lockTTL    time.Duration
	editorOpts []sceneweaver.Option
	newID      func() string
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEditorOptions sets the options every editor is built with
// (store, identity, hooks...).
func WithEditorOptions(opts ...sceneweaver.Option) Option {
	return func(m *Manager) {
		m.editorOpts = append(m.editorOpts, opts...)
	}
}

// WithIDGenerator replaces the uuid generator for session ids.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager creates a new session manager persisting drafts to drafts.
func NewManager(drafts ports.DraftStore, opts ...Option) *Manager {
	m := &Manager{
		drafts:  drafts,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*sceneweaver.Editor),
		lockTTL: DefaultLockTTL,
		newID:   uuid.NewString,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a session on a fresh scenario.
func (m *Manager) Create(ctx context.Context) (string, *sceneweaver.Editor, error) {
	id := m.newID()
	ed := sceneweaver.New(m.editorOpts...)
	if err := m.adopt(ctx, id, ed); err != nil {
		return "", nil, err
	}
	m.logger.Info("session created", "session_id", id)
	return id, ed, nil
}

// Open starts a session on a scenario loaded from the store.
func (m *Manager) Open(ctx context.Context, scenarioID string) (string, *sceneweaver.Editor, error) {
	ed, err := sceneweaver.Open(ctx, scenarioID, m.editorOpts...)
	if err != nil {
		return "", nil, err
	}
	id := m.newID()
	if err := m.adopt(ctx, id, ed); err != nil {
		return "", nil, err
	}
	m.logger.Info("session opened", "session_id", id, "scenario", scenarioID)
	return id, ed, nil
}

func (m *Manager) adopt(ctx context.Context, id string, ed *sceneweaver.Editor) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		if err := m.drafts.Save(ctx, id, ed.Draft()); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		m.remember(id, ed)
		return nil
	})
}

// remember caches a live editor. With a distributed locker other replicas
// may change the draft at any time, so nothing is cached.
func (m *Manager) remember(id string, ed *sceneweaver.Editor) {
	if m.locker != nil {
		return
	}
	m.mu.Lock()
	m.live[id] = ed
	m.mu.Unlock()
}

// Get returns the editor of a session, restoring it from its draft when
// this process does not hold it. Returns domain.ErrSessionNotFound if there
// is neither. With a distributed locker the editor is always restored, and
// changes made to it outside Update are not persisted.
func (m *Manager) Get(ctx context.Context, sessionID string) (*sceneweaver.Editor, error) {
	var ed *sceneweaver.Editor
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		ed, err = m.editor(ctx, sessionID)
		return err
	})
	return ed, err
}

// editor resolves a session. Callers hold the session lock.
func (m *Manager) editor(ctx context.Context, sessionID string) (*sceneweaver.Editor, error) {
	m.mu.Lock()
	ed, ok := m.live[sessionID]
	m.mu.Unlock()
	if ok {
		return ed, nil
	}

	draft, err := m.drafts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ed, err = sceneweaver.FromDraft(ctx, draft, m.editorOpts...)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", sessionID, err)
	}
	m.remember(sessionID, ed)
	m.logger.Debug("session restored from draft", "session_id", sessionID)
	return ed, nil
}

// Update runs fn against the session's editor and persists the resulting
// draft. The draft is persisted even when fn fails, since editor operations
// that return rejections leave the graph in a consistent state.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*sceneweaver.Editor) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		ed, err := m.editor(ctx, sessionID)
		if err != nil {
			return err
		}
		fnErr := fn(ed)
		if err := m.drafts.Save(ctx, sessionID, ed.Draft()); err != nil {
			return errors.Join(fnErr, fmt.Errorf("persist draft: %w", err))
		}
		return fnErr
	})
}

// Save submits the session's scenario to the store. Without a distributed
// locker the session lock is not held during the remote call; the draft is
// refreshed afterwards so it carries the id assigned on first save. With a
// locker the whole save runs under the lock, so no replica edits a draft
// that is about to be overwritten.
func (m *Manager) Save(ctx context.Context, sessionID string) (domain.SaveOutcome, error) {
	if m.locker != nil {
		var outcome domain.SaveOutcome
		err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
			ed, err := m.editor(ctx, sessionID)
			if err != nil {
				return err
			}
			var saveErr error
			outcome, saveErr = ed.Save(ctx)
			if err := m.drafts.Save(ctx, sessionID, ed.Draft()); err != nil {
				return errors.Join(saveErr, fmt.Errorf("persist draft: %w", err))
			}
			return saveErr
		})
		return outcome, err
	}

	ed, err := m.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	outcome, saveErr := ed.Save(ctx)
	if saveErr != nil {
		return outcome, saveErr
	}
	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.drafts.Save(ctx, sessionID, ed.Draft())
	})
	return outcome, err
}

// Close forgets a session and removes its draft.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		delete(m.live, sessionID)
		m.mu.Unlock()
		return m.drafts.Delete(ctx, sessionID)
	})
}

// List delegates to the draft store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.drafts.List(ctx)
}

// Drafts returns the underlying draft store.
func (m *Manager) Drafts() ports.DraftStore {
	return m.drafts
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
