package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDraftStoreContract runs a suite of tests to verify that a DraftStore
// implementation adheres to the interface contract.
func RunDraftStoreContract(t *testing.T, store DraftStore) {
	ctx := context.Background()
	sessionID := "contract-draft-" + time.Now().Format("20060102150405.000")

	draft := func(title string) document.Draft {
		return document.Draft{
			Document: document.Document{
				Title: title,
				Steps: []document.StepDoc{
					{ID: "start", Title: "Start", Choices: []document.ChoiceDoc{{Text: "Next", Next: "end"}}},
					{ID: "end", Title: "End", Choices: []document.ChoiceDoc{},
						Location: &document.LocationDoc{Title: "Pier", Latitude: 54.35, Longitude: 18.65}},
				},
			},
			Layout: &document.Layout{Steps: map[string]document.StepLayout{
				"start": {Position: domain.Position{X: 40, Y: 80}, Choices: []document.ChoiceLayout{{ID: "c1", Source: 2, Target: 3}}},
				"end":   {Position: domain.Position{X: 40, Y: 330}, Errors: []string{"Title too short"}},
			}},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, sessionID, draft("Draft"))
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		doc := loaded.Document
		assert.Equal(t, "Draft", doc.Title)
		require.Len(t, doc.Steps, 2)
		assert.Equal(t, []document.ChoiceDoc{{Text: "Next", Next: "end"}}, doc.Steps[0].Choices)
		require.NotNil(t, doc.Steps[1].Location)
		assert.InDelta(t, 54.35, float64(doc.Steps[1].Location.Latitude), 1e-9)

		require.NotNil(t, loaded.Layout, "layout must survive storage")
		assert.Equal(t, domain.Position{X: 40, Y: 80}, loaded.Layout.Steps["start"].Position)
		assert.Equal(t, []document.ChoiceLayout{{ID: "c1", Source: 2, Target: 3}}, loaded.Layout.Steps["start"].Choices)
		assert.Equal(t, []string{"Title too short"}, loaded.Layout.Steps["end"].Errors)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, draft("Renamed")))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Document.Title)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, draft("Draft")))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, draft("one"))
		_ = store.Save(ctx, id2, draft("two"))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
