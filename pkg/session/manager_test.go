package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/pkg/adapters/memory"
	"github.com/aretw0/sceneweaver/pkg/adapters/redis"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/ports"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/aretw0/sceneweaver/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowDrafts simulates latency to provoke race conditions if locking is missing.
type SlowDrafts struct {
	*memory.DraftStore
	saves int
	mu    sync.Mutex
}

func (s *SlowDrafts) Save(ctx context.Context, sessionID string, draft document.Draft) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.DraftStore.Save(ctx, sessionID, draft)
}

func ids() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func TestManager_CreatePersistsDraft(t *testing.T) {
	drafts := memory.NewDraftStore()
	mgr := session.NewManager(drafts, session.WithIDGenerator(ids()))
	ctx := context.Background()

	id, ed, err := mgr.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	require.NotNil(t, ed)

	draft, err := drafts.Load(ctx, id)
	require.NoError(t, err)
	doc := draft.Document
	require.Len(t, doc.Steps, 1)
	assert.Equal(t, domain.StartStepTitle, doc.Steps[0].Title)

	list, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, list)
}

func TestManager_UpdateSerializesAndPersists(t *testing.T) {
	drafts := &SlowDrafts{DraftStore: memory.NewDraftStore()}
	mgr := session.NewManager(drafts)
	ctx := context.Background()

	id, ed, err := mgr.Create(ctx)
	require.NoError(t, err)
	start := ed.Snapshot().Steps[0]

	var wg sync.WaitGroup
	for i := 0; i < domain.MaxChoicesPerStep+2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Update(ctx, id, func(ed *sceneweaver.Editor) error {
				_, _, err := ed.AddLinkedStep(start.ID)
				return err
			})
		}()
	}
	wg.Wait()

	draft, err := drafts.Load(ctx, id)
	require.NoError(t, err)
	doc := draft.Document
	assert.Len(t, doc.Steps[0].Choices, domain.MaxChoicesPerStep)
	assert.Len(t, doc.Steps, domain.MaxChoicesPerStep+1)
}

func TestManager_UpdateReturnsRejection(t *testing.T) {
	mgr := session.NewManager(memory.NewDraftStore())
	ctx := context.Background()
	id, _, err := mgr.Create(ctx)
	require.NoError(t, err)

	err = mgr.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		return ed.EditStep("missing", domain.StepPatch{})
	})
	assert.ErrorIs(t, err, domain.ErrStepNotFound)

	err = mgr.Update(ctx, "unknown", func(*sceneweaver.Editor) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_RestoreFromDraft(t *testing.T) {
	drafts := memory.NewDraftStore()
	ctx := context.Background()

	first := session.NewManager(drafts)
	id, _, err := first.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		ed.SetTitle("Shared")
		_, _, err := ed.AddLinkedStep(ed.Snapshot().Steps[0].ID)
		return err
	}))

	// A second replica shares only the draft store.
	second := session.NewManager(drafts)
	ed, err := second.Get(ctx, id)
	require.NoError(t, err)
	snap := ed.Snapshot()
	assert.Equal(t, "Shared", snap.Title)
	assert.Len(t, snap.Steps, 2)
	assert.Len(t, snap.Choices, 1)

	again, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, ed, again)
}

func TestManager_SaveRefreshesDraft(t *testing.T) {
	drafts := memory.NewDraftStore()
	store := memory.NewScenarioStore(memory.WithIDGenerator(func() string { return "scn" }))
	mgr := session.NewManager(drafts, session.WithEditorOptions(sceneweaver.WithStore(store)))
	ctx := context.Background()

	id, _, err := mgr.Create(ctx)
	require.NoError(t, err)
	out, err := mgr.Save(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SaveCreated, out)

	draft, err := drafts.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "scn", draft.Document.ID)

	_, openedEd, err := mgr.Open(ctx, "scn")
	require.NoError(t, err)
	assert.Equal(t, "scn", openedEd.Metadata().ID)

	_, _, err = mgr.Open(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrLoadFailed)
}

func TestManager_Close(t *testing.T) {
	drafts := memory.NewDraftStore()
	mgr := session.NewManager(drafts)
	ctx := context.Background()

	id, _, err := mgr.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, mgr.Close(ctx, id))

	_, err = mgr.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	drafts := redis.NewFromClient(client)
	mgr := session.NewManager(drafts, session.WithLocker(redis.NewLocker(client, "test:")))
	ctx := context.Background()

	id, _, err := mgr.Create(ctx)
	require.NoError(t, err)

	var seen bool
	require.NoError(t, mgr.WithLock(ctx, id, func(context.Context) error {
		seen = mr.Exists("test:lock:" + id)
		return nil
	}))
	assert.True(t, seen, "lock key should exist while the callback runs")
	assert.False(t, mr.Exists("test:lock:"+id))
}

func TestManager_ReplicasShareDrafts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	replica := func() *session.Manager {
		return session.NewManager(redis.NewFromClient(client),
			session.WithLocker(redis.NewLocker(client, "test:")))
	}
	a, b := replica(), replica()
	ctx := context.Background()

	id, ed, err := a.Create(ctx)
	require.NoError(t, err)
	start := ed.Snapshot().Steps[0].ID

	var added domain.Step
	var link domain.Choice
	require.NoError(t, b.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		var err error
		added, link, err = ed.AddLinkedStep(start)
		return err
	}))
	require.NoError(t, a.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		ed.SetTitle("from A")
		return ed.MoveStep(added.ID, domain.Position{X: 777, Y: 42})
	}))

	draft, err := redis.NewFromClient(client).Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "from A", draft.Document.Title)
	assert.Len(t, draft.Document.Steps, 2, "the step added on the other replica survives")

	restored, err := b.Get(ctx, id)
	require.NoError(t, err)
	got, ok := restored.Step(added.ID)
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 777, Y: 42}, got.Position, "moves survive a restore")
	choices := restored.Snapshot().Choices
	require.Len(t, choices, 1)
	assert.Equal(t, link.ID, choices[0].ID, "choice ids stay valid across replicas")
}

func TestManager_RestoreKeepsSlots(t *testing.T) {
	drafts := memory.NewDraftStore()
	ctx := context.Background()

	first := session.NewManager(drafts)
	id, ed, err := first.Create(ctx)
	require.NoError(t, err)
	start := ed.Snapshot().Steps[0].ID

	var child domain.Step
	require.NoError(t, first.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		child = ed.AddStep(domain.Position{X: 0, Y: 500})
		_, err := ed.Connect(rules.Proposal{SourceStepID: start, SourceSlot: 3, TargetStepID: child.ID, TargetSlot: 2}, "Far")
		return err
	}))

	restored, err := session.NewManager(drafts).Get(ctx, id)
	require.NoError(t, err)
	choices := restored.Snapshot().Choices
	require.Len(t, choices, 1)
	assert.Equal(t, 3, choices[0].SourceSlot)
	assert.Equal(t, 2, choices[0].TargetSlot)
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("busy")
}

func TestManager_LockFailure(t *testing.T) {
	mgr := session.NewManager(memory.NewDraftStore(), session.WithLocker(failingLocker{}))
	_, _, err := mgr.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire distributed lock")
}
