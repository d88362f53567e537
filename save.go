package sceneweaver

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
)

// Save serializes the scenario and submits it to the store, creating it on
// first save and updating it afterwards.
//
// A refusal by the store is not an error: the store's messages are projected
// onto the affected steps and the outcome is domain.SaveRejected. Transport
// and other failures return domain.SaveFailed with the cause. Only one save
// may be outstanding; a concurrent call returns domain.ErrSaveInFlight.
func (e *Editor) Save(ctx context.Context) (domain.SaveOutcome, error) {
	if e.store == nil {
		return domain.SaveFailed, domain.ErrNoStore
	}
	if !e.saving.CompareAndSwap(false, true) {
		return "", domain.ErrSaveInFlight
	}
	defer e.saving.Store(false)

	start := time.Now()
	e.mu.Lock()
	doc := document.ToDocument(e.meta, e.graph)
	id := e.meta.ID
	logger := e.log()
	e.graph.ClearAllErrors()
	e.mu.Unlock()

	// The lock is not held across the remote call so the user can keep editing.
	var (
		saved   document.Document
		err     error
		outcome domain.SaveOutcome
	)
	if id == "" {
		saved, err = e.store.Create(ctx, doc)
		outcome = domain.SaveCreated
	} else {
		saved, err = e.store.Update(ctx, id, doc)
		outcome = domain.SaveUpdated
	}

	var notice domain.Notice
	var rve *domain.RemoteValidationError
	switch {
	case err == nil:
		e.mu.Lock()
		if saved.ID != "" {
			e.meta.ID = saved.ID
		}
		if e.meta.CreatedBy == "" {
			e.meta.CreatedBy = saved.CreatedBy.ID
		}
		id = e.meta.ID
		e.mu.Unlock()
		logger.Info("scenario saved", "scenario", id, "outcome", outcome)
		notice = domain.Notice{Level: domain.NoticeSuccess, Title: "Scenario saved"}

	case errors.As(err, &rve):
		errs := document.ParseServerErrors(rve.Payload)
		e.mu.Lock()
		marked := document.Apply(errs, e.graph)
		e.mu.Unlock()
		logger.Warn("scenario rejected by store", "status", rve.Status, "steps_marked", marked)
		outcome, err = domain.SaveRejected, nil
		notice = errs.Notice()

	default:
		logger.Error("scenario save failed", "error", err)
		outcome = domain.SaveFailed
		notice = domain.Notice{
			Level:       domain.NoticeError,
			Title:       "Could not save scenario",
			Description: "Check the connection to the server.",
		}
	}

	if e.hooks.OnSave != nil {
		e.hooks.OnSave(ctx, &domain.SaveEvent{
			Timestamp:  start,
			ScenarioID: id,
			Outcome:    outcome,
			Duration:   time.Since(start),
		})
	}
	e.notifier.Notify(ctx, notice)
	return outcome, err
}
