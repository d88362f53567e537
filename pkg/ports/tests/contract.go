package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/ports"
)

// ScenarioStoreContractTest is a reusable suite that verifies a validating
// ports.ScenarioStore: ids are assigned on create, invalid documents are
// refused with a store payload, and lookups of missing ids fail with
// domain.ErrScenarioNotFound.
func ScenarioStoreContractTest(t *testing.T, store ports.ScenarioStore) {
	t.Helper()
	ctx := context.Background()

	valid := document.Document{
		Title:       "Contract",
		Description: "Created by the contract suite",
		CreatedBy:   document.UserRef{ID: "contract-user"},
		Steps: []document.StepDoc{
			{ID: "s1", Title: "Start", Choices: []document.ChoiceDoc{{Text: "Go", Next: "s2"}}},
			{ID: "s2", Title: "End", Choices: []document.ChoiceDoc{}},
		},
	}

	var created document.Document

	t.Run("Create", func(t *testing.T) {
		var err error
		created, err = store.Create(ctx, valid)
		if err != nil {
			t.Fatalf("unexpected error creating scenario: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected the store to assign an id")
		}
		if len(created.Steps) != 2 || created.Steps[0].Choices[0].Next != "s2" {
			t.Errorf("stored document lost its steps: %+v", created.Steps)
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("unexpected error getting scenario: %v", err)
		}
		if got.Title != valid.Title {
			t.Errorf("title mismatch. got %q, want %q", got.Title, valid.Title)
		}
		if got.CreatedBy.ID != "contract-user" {
			t.Errorf("creator mismatch. got %q", got.CreatedBy.ID)
		}
	})

	t.Run("Update", func(t *testing.T) {
		changed := created
		changed.Title = "Contract v2"
		got, err := store.Update(ctx, created.ID, changed)
		if err != nil {
			t.Fatalf("unexpected error updating scenario: %v", err)
		}
		if got.Title != "Contract v2" || got.ID != created.ID {
			t.Errorf("unexpected update result: %+v", got)
		}
	})

	t.Run("Create_Rejected", func(t *testing.T) {
		invalid := valid
		invalid.Steps = []document.StepDoc{{ID: "s1", Title: ""}}
		_, err := store.Create(ctx, invalid)
		var rv *domain.RemoteValidationError
		if !errors.As(err, &rv) {
			t.Fatalf("expected RemoteValidationError, got %v", err)
		}
		errs := document.ParseServerErrors(rv.Payload)
		if len(errs.StepErrors["s1"]) == 0 {
			t.Errorf("expected errors for step s1, got %+v", errs)
		}
	})

	t.Run("List", func(t *testing.T) {
		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing scenarios: %v", err)
		}
		found := false
		for _, s := range list {
			if s.ID == created.ID {
				found = true
				if s.Steps != 2 {
					t.Errorf("expected 2 steps in summary, got %d", s.Steps)
				}
			}
		}
		if !found {
			t.Errorf("scenario %s missing from list", created.ID)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, created.ID); err != nil {
			t.Fatalf("unexpected error deleting scenario: %v", err)
		}
		if _, err := store.Get(ctx, created.ID); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Errorf("expected ErrScenarioNotFound after delete, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := store.Get(ctx, "non-existent-scenario"); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Errorf("expected ErrScenarioNotFound, got %v", err)
		}
		if _, err := store.Update(ctx, "non-existent-scenario", valid); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Errorf("expected ErrScenarioNotFound on update, got %v", err)
		}
		if err := store.Delete(ctx, "non-existent-scenario"); !errors.Is(err, domain.ErrScenarioNotFound) {
			t.Errorf("expected ErrScenarioNotFound on delete, got %v", err)
		}
	})
}
