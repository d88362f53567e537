// Package http exposes editing sessions to a canvas front end over JSON.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/internal/presentation/graph"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/edgelabel"
	"github.com/aretw0/sceneweaver/pkg/ports"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/aretw0/sceneweaver/pkg/session"
	"github.com/go-chi/chi/v5"
)

// Server serves the editor API.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	store   ports.ScenarioStore
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStore enables GET /scenarios.
func WithStore(store ports.ScenarioStore) Option {
	return func(s *Server) { s.store = store }
}

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for a session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Get("/scenarios", s.ListScenarios)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Patch("/scenario", s.PatchScenario)
			r.Post("/steps", s.AddStep)
			r.Patch("/steps/{stepID}", s.PatchStep)
			r.Delete("/steps/{stepID}", s.DeleteStep)
			r.Post("/steps/{stepID}/children", s.AddLinkedStep)
			r.Post("/choices", s.Connect)
			r.Delete("/choices/{choiceID}", s.DeleteChoice)
			r.Post("/label", s.OpenLabel)
			r.Put("/label", s.TypeLabel)
			r.Post("/label/key", s.LabelKey)
			r.Delete("/label", s.DeleteLabelChoice)
			r.Post("/layout", s.Layout)
			r.Delete("/errors", s.ClearErrors)
			r.Post("/save", s.Save)
			r.Get("/document", s.GetDocument)
			r.Get("/mermaid", s.GetMermaid)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// View is the canvas state of a session.
type View struct {
	SessionID   string                 `json:"session_id"`
	Scenario    domain.Scenario        `json:"scenario"`
	LabelEditor sceneweaver.LabelState `json:"label_editor"`
	HasErrors   bool                   `json:"has_errors"`
}

func viewOf(id string, ed *sceneweaver.Editor) View {
	snap := ed.Snapshot()
	return View{
		SessionID:   id,
		Scenario:    snap,
		LabelEditor: ed.LabelEditor(),
		HasErrors:   ed.HasErrors(),
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsRejection(err), errors.Is(err, domain.ErrSaveInFlight):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrStepNotFound),
		errors.Is(err, domain.ErrChoiceNotFound),
		errors.Is(err, domain.ErrScenarioNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrLoadFailed), errors.Is(err, domain.ErrRemoteFailure):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

// mutate runs fn under the session lock, persists the draft, broadcasts the
// new view and writes it (or fn's error) to w.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(*sceneweaver.Editor) error) {
	id := chi.URLParam(r, "sessionID")
	var view View
	err := s.Sessions.Update(r.Context(), id, func(ed *sceneweaver.Editor) error {
		err := fn(ed)
		view = viewOf(id, ed)
		return err
	})
	if view.SessionID != "" {
		s.broadcast(view)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, view)
}

func (s *Server) broadcast(view View) {
	if b, err := json.Marshal(view); err == nil {
		s.Streams.Broadcast(view.SessionID, string(b))
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "sceneweaver-http",
		"version": sceneweaver.Version,
	})
}

// ListScenarios handles GET /scenarios.
func (s *Server) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody{Error: domain.ErrNoStore.Error()})
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

type createSessionRequest struct {
	ScenarioID string             `json:"scenario_id,omitempty"`
	Document   *document.Document `json:"document,omitempty"`
}

// CreateSession handles POST /sessions. An empty body starts a fresh
// scenario; scenario_id opens a stored one.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}

	var (
		id  string
		ed  *sceneweaver.Editor
		err error
	)
	if body.ScenarioID != "" {
		id, ed, err = s.Sessions.Open(r.Context(), body.ScenarioID)
	} else {
		id, ed, err = s.Sessions.Create(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewOf(id, ed))
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ed, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(id, ed))
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scenarioPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// PatchScenario handles PATCH /sessions/{id}/scenario.
func (s *Server) PatchScenario(w http.ResponseWriter, r *http.Request) {
	var body scenarioPatch
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		if body.Title != nil {
			ed.SetTitle(*body.Title)
		}
		if body.Description != nil {
			ed.SetDescription(*body.Description)
		}
		return nil
	})
}

// AddStep handles POST /sessions/{id}/steps with a canvas position.
func (s *Server) AddStep(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if !s.decode(w, r, &pos) {
		return
	}
	s.mutate(w, r, http.StatusCreated, func(ed *sceneweaver.Editor) error {
		ed.AddStep(pos)
		return nil
	})
}

// AddLinkedStep handles POST /sessions/{id}/steps/{step}/children.
func (s *Server) AddLinkedStep(w http.ResponseWriter, r *http.Request) {
	parent := chi.URLParam(r, "stepID")
	s.mutate(w, r, http.StatusCreated, func(ed *sceneweaver.Editor) error {
		_, _, err := ed.AddLinkedStep(parent)
		return err
	})
}

type stepPatch struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Location      *domain.Location `json:"location"`
	ClearLocation bool             `json:"clear_location"`
	Position      *domain.Position `json:"position"`
}

// PatchStep handles PATCH /sessions/{id}/steps/{step}. A body holding only
// a position is a move and keeps the step's errors.
func (s *Server) PatchStep(w http.ResponseWriter, r *http.Request) {
	var body stepPatch
	if !s.decode(w, r, &body) {
		return
	}
	stepID := chi.URLParam(r, "stepID")
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		if body.Position != nil {
			if err := ed.MoveStep(stepID, *body.Position); err != nil {
				return err
			}
		}
		if body.Title == nil && body.Description == nil && body.Location == nil && !body.ClearLocation {
			return nil
		}
		return ed.EditStep(stepID, domain.StepPatch{
			Title:         body.Title,
			Description:   body.Description,
			Location:      body.Location,
			ClearLocation: body.ClearLocation,
		})
	})
}

// DeleteStep handles DELETE /sessions/{id}/steps/{step}.
func (s *Server) DeleteStep(w http.ResponseWriter, r *http.Request) {
	stepID := chi.URLParam(r, "stepID")
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		if !ed.DeleteStep(stepID) {
			return fmt.Errorf("%w: %s", domain.ErrStepNotFound, stepID)
		}
		return nil
	})
}

type connectRequest struct {
	Source     string `json:"source"`
	SourceSlot *int   `json:"source_slot"`
	Target     string `json:"target"`
	TargetSlot *int   `json:"target_slot"`
	Label      string `json:"label"`
}

// Connect handles POST /sessions/{id}/choices. Omitted slots pick the first
// free ports. Rejections answer 409 with the reason.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, http.StatusCreated, func(ed *sceneweaver.Editor) error {
		if body.SourceSlot == nil || body.TargetSlot == nil {
			_, err := ed.ConnectNext(body.Source, body.Target, body.Label)
			return err
		}
		_, err := ed.Connect(rules.Proposal{
			SourceStepID: body.Source,
			SourceSlot:   *body.SourceSlot,
			TargetStepID: body.Target,
			TargetSlot:   *body.TargetSlot,
		}, body.Label)
		return err
	})
}

// DeleteChoice handles DELETE /sessions/{id}/choices/{choice}.
func (s *Server) DeleteChoice(w http.ResponseWriter, r *http.Request) {
	choiceID := chi.URLParam(r, "choiceID")
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		if !ed.DeleteChoice(choiceID) {
			return fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, choiceID)
		}
		return nil
	})
}

type labelRequest struct {
	ChoiceID string `json:"choice_id"`
	Draft    string `json:"draft"`
	Key      string `json:"key"`
}

// OpenLabel handles POST /sessions/{id}/label (a click on an edge label).
func (s *Server) OpenLabel(w http.ResponseWriter, r *http.Request) {
	var body labelRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		return ed.EditChoice(body.ChoiceID)
	})
}

// TypeLabel handles PUT /sessions/{id}/label with the new draft.
func (s *Server) TypeLabel(w http.ResponseWriter, r *http.Request) {
	var body labelRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		ed.TypeLabel(body.Draft)
		return nil
	})
}

// LabelKey handles POST /sessions/{id}/label/key with Enter or Escape.
// A background click is sent as Escape.
func (s *Server) LabelKey(w http.ResponseWriter, r *http.Request) {
	var body labelRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		_, err := ed.HandleKey(edgelabel.Key(body.Key))
		return err
	})
}

// DeleteLabelChoice handles DELETE /sessions/{id}/label (the delete
// affordance next to the label input).
func (s *Server) DeleteLabelChoice(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		_, err := ed.DeleteEditedChoice()
		return err
	})
}

// Layout handles POST /sessions/{id}/layout.
func (s *Server) Layout(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		ed.AutoLayout()
		return nil
	})
}

// ClearErrors handles DELETE /sessions/{id}/errors.
func (s *Server) ClearErrors(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, func(ed *sceneweaver.Editor) error {
		ed.ClearErrors()
		return nil
	})
}

type saveResponse struct {
	Outcome domain.SaveOutcome `json:"outcome"`
	View    View               `json:"view"`
}

// Save handles POST /sessions/{id}/save. A store rejection is a 422 whose
// view carries the projected errors.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	outcome, err := s.Sessions.Save(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ed, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := viewOf(id, ed)
	s.broadcast(view)

	status := http.StatusOK
	if outcome == domain.SaveRejected {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, saveResponse{Outcome: outcome, View: view})
}

// GetDocument handles GET /sessions/{id}/document?format=json|yaml.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	format := document.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = document.ParseFormat(f); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}
	ed, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if format == document.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := document.Encode(w, ed.Document(), format); err != nil {
		s.logger.Error("document encode failed", "error", err)
	}
}

// GetMermaid handles GET /sessions/{id}/mermaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	ed, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap := ed.Snapshot()
	overlay := &graph.Overlay{}
	for _, st := range snap.Steps {
		if st.HasErrors() {
			overlay.ErrorSteps = append(overlay.ErrorSteps, st.ID)
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(document.FromScenario(snap), overlay))
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Every mutation
// of the session pushes its new view.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(msg, "\n", ""))
			flusher.Flush()
		}
	}
}
