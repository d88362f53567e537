package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sceneweaver/pkg/adapters/memory"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/ports"
	"github.com/aretw0/sceneweaver/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDraftStore_Contract(t *testing.T) {
	ports.RunDraftStoreContract(t, memory.NewDraftStore())
}

func TestMemoryScenarioStore_Contract(t *testing.T) {
	tests.ScenarioStoreContractTest(t, memory.NewScenarioStore())
}

func TestMemoryScenarioStore_ServerOwnedFields(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewScenarioStore(
		memory.WithIDGenerator(func() string { return "fixed" }),
		memory.WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()

	doc := document.Document{
		Title:     "Owned",
		CreatedBy: document.UserRef{ID: "alice"},
		Steps:     []document.StepDoc{{ID: "s", Title: "S", Choices: []document.ChoiceDoc{}}},
	}
	created, err := store.Create(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "fixed", created.ID)
	assert.Equal(t, clock, created.CreatedAt)

	clock = clock.Add(time.Hour)
	doc.CreatedBy = document.UserRef{ID: "mallory"}
	doc.ID = "ignored"
	updated, err := store.Update(ctx, "fixed", doc)
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.ID)
	assert.Equal(t, "alice", updated.CreatedBy.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, clock, updated.ModifiedAt)
}

func TestMemoryDraftStore_Isolation(t *testing.T) {
	store := memory.NewDraftStore()
	ctx := context.Background()
	draft := document.Draft{
		Document: document.Document{Title: "a", Steps: []document.StepDoc{{ID: "s", Title: "before"}}},
		Layout:   &document.Layout{Steps: map[string]document.StepLayout{"s": {Errors: []string{"one"}}}},
	}
	require.NoError(t, store.Save(ctx, "x", draft))

	draft.Document.Steps[0].Title = "after"
	draft.Layout.Steps["s"].Errors[0] = "changed"
	loaded, err := store.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "before", loaded.Document.Steps[0].Title)
	assert.Equal(t, []string{"one"}, loaded.Layout.Steps["s"].Errors)
}
