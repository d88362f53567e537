package mcp

import (
	"context"
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
	"github.com/aretw0/sceneweaver/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionView is the structured payload returned by editing tools.
type SessionView struct {
	SessionID string          `json:"session_id"`
	Scenario  domain.Scenario `json:"scenario"`
	HasErrors bool            `json:"has_errors"`
}

// SaveResult reports the outcome of the save tool.
type SaveResult struct {
	SessionView
	Outcome string `json:"outcome"`
}

// ValidationResult lists the diagnostics for a session's document.
type ValidationResult struct {
	Valid       bool                  `json:"valid"`
	Diagnostics []document.Diagnostic `json:"diagnostics"`
}

// Server wraps the MCP server and the session manager it drives.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server exposing scenario editing tools.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("sceneweaver", sceneweaver.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()

	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server using Server-Sent Events on the given port.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp sse server listening", "url", baseURL+"/sse")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session_id", mcp.Required(), mcp.Description("Editing session identifier"))

	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start an editing session. Opens a stored scenario when scenario_id is given."),
		mcp.WithString("scenario_id", mcp.Description("Stored scenario to open")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return the scenario currently being edited"),
		sessionArg,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("set_scenario",
		mcp.WithDescription("Update the scenario title and description"),
		sessionArg,
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSetScenario))

	s.mcpServer.AddTool(mcp.NewTool("add_step",
		mcp.WithDescription("Add a step. With parent_id the step is linked below its parent."),
		sessionArg,
		mcp.WithString("parent_id", mcp.Description("Step to link the new step from")),
		mcp.WithString("title", mcp.Description("Step title")),
		mcp.WithString("description", mcp.Description("Step description")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleAddStep))

	s.mcpServer.AddTool(mcp.NewTool("edit_step",
		mcp.WithDescription("Change a step's title or description"),
		sessionArg,
		mcp.WithString("step_id", mcp.Required(), mcp.Description("Step to edit")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleEditStep))

	s.mcpServer.AddTool(mcp.NewTool("delete_step",
		mcp.WithDescription("Delete a step and every choice touching it"),
		sessionArg,
		mcp.WithString("step_id", mcp.Required(), mcp.Description("Step to delete")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleDeleteStep))

	s.mcpServer.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Add a choice from source to target on the next free ports"),
		sessionArg,
		mcp.WithString("source", mcp.Required(), mcp.Description("Source step")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target step")),
		mcp.WithString("label", mcp.Description("Choice text, defaults to Next")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("rename_choice",
		mcp.WithDescription("Set a choice label. An empty label deletes the choice."),
		sessionArg,
		mcp.WithString("choice_id", mcp.Required(), mcp.Description("Choice to rename")),
		mcp.WithString("label", mcp.Description("New label")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleRenameChoice))

	s.mcpServer.AddTool(mcp.NewTool("delete_choice",
		mcp.WithDescription("Remove a choice"),
		sessionArg,
		mcp.WithString("choice_id", mcp.Required(), mcp.Description("Choice to delete")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleDeleteChoice))

	s.mcpServer.AddTool(mcp.NewTool("auto_layout",
		mcp.WithDescription("Recompute step positions top to bottom"),
		sessionArg,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleAutoLayout))

	s.mcpServer.AddTool(mcp.NewTool("clear_errors",
		mcp.WithDescription("Drop all validation errors from the session"),
		sessionArg,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleClearErrors))

	s.mcpServer.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Persist the scenario to the configured store"),
		sessionArg,
		mcp.WithOutputSchema[SaveResult](),
	), mcp.NewStructuredToolHandler(s.handleSave))

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Check the session's document without saving it"),
		sessionArg,
		mcp.WithOutputSchema[ValidationResult](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("get_mermaid",
		mcp.WithDescription("Render the scenario as a Mermaid flowchart"),
		sessionArg,
	), s.handleGetMermaid)
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func optionalString(args map[string]interface{}, key string) *string {
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func viewOf(id string, ed *sceneweaver.Editor) SessionView {
	return SessionView{SessionID: id, Scenario: ed.Snapshot(), HasErrors: ed.HasErrors()}
}

// mutate applies fn to the session and returns the resulting view.
func (s *Server) mutate(ctx context.Context, args map[string]interface{}, fn func(*sceneweaver.Editor) error) (SessionView, error) {
	id, err := requireString(args, "session_id")
	if err != nil {
		return SessionView{}, err
	}
	var view SessionView
	err = s.sessions.Update(ctx, id, func(ed *sceneweaver.Editor) error {
		ferr := fn(ed)
		view = viewOf(id, ed)
		return ferr
	})
	if err != nil {
		return SessionView{}, err
	}
	return view, nil
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	var (
		id  string
		ed  *sceneweaver.Editor
		err error
	)
	if scenarioID := stringArg(args, "scenario_id"); scenarioID != "" {
		id, ed, err = s.sessions.Open(ctx, scenarioID)
	} else {
		id, ed, err = s.sessions.Create(ctx)
	}
	if err != nil {
		return SessionView{}, err
	}
	s.logger.Info("mcp session created", "session_id", id)
	return viewOf(id, ed), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	id, err := requireString(args, "session_id")
	if err != nil {
		return SessionView{}, err
	}
	ed, err := s.sessions.Get(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(id, ed), nil
}

func (s *Server) handleSetScenario(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		if title := optionalString(args, "title"); title != nil {
			ed.SetTitle(*title)
		}
		if desc := optionalString(args, "description"); desc != nil {
			ed.SetDescription(*desc)
		}
		return nil
	})
}

func (s *Server) handleAddStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		var step domain.Step
		if parent := stringArg(args, "parent_id"); parent != "" {
			linked, _, err := ed.AddLinkedStep(parent)
			if err != nil {
				return err
			}
			step = linked
		} else {
			step = ed.AddStep(domain.Position{})
		}
		patch := domain.StepPatch{
			Title:       optionalString(args, "title"),
			Description: optionalString(args, "description"),
		}
		if patch.Title == nil && patch.Description == nil {
			return nil
		}
		return ed.EditStep(step.ID, patch)
	})
}

func (s *Server) handleEditStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	stepID, err := requireString(args, "step_id")
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		return ed.EditStep(stepID, domain.StepPatch{
			Title:       optionalString(args, "title"),
			Description: optionalString(args, "description"),
		})
	})
}

func (s *Server) handleDeleteStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	stepID, err := requireString(args, "step_id")
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		if !ed.DeleteStep(stepID) {
			return fmt.Errorf("%w: %s", domain.ErrStepNotFound, stepID)
		}
		return nil
	})
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	source, err := requireString(args, "source")
	if err != nil {
		return SessionView{}, err
	}
	target, err := requireString(args, "target")
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		_, err := ed.ConnectNext(source, target, stringArg(args, "label"))
		if domain.IsRejection(err) {
			return fmt.Errorf("connection rejected: %w", err)
		}
		return err
	})
}

func (s *Server) handleRenameChoice(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	choiceID, err := requireString(args, "choice_id")
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		return ed.RenameChoice(choiceID, stringArg(args, "label"))
	})
}

func (s *Server) handleDeleteChoice(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	choiceID, err := requireString(args, "choice_id")
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		if !ed.DeleteChoice(choiceID) {
			return fmt.Errorf("%w: %s", domain.ErrChoiceNotFound, choiceID)
		}
		return nil
	})
}

func (s *Server) handleAutoLayout(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		ed.AutoLayout()
		return nil
	})
}

func (s *Server) handleClearErrors(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionView, error) {
	return s.mutate(ctx, args, func(ed *sceneweaver.Editor) error {
		ed.ClearErrors()
		return nil
	})
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SaveResult, error) {
	id, err := requireString(args, "session_id")
	if err != nil {
		return SaveResult{}, err
	}
	outcome, err := s.sessions.Save(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	ed, err := s.sessions.Get(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{SessionView: viewOf(id, ed), Outcome: string(outcome)}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResult, error) {
	id, err := requireString(args, "session_id")
	if err != nil {
		return ValidationResult{}, err
	}
	ed, err := s.sessions.Get(ctx, id)
	if err != nil {
		return ValidationResult{}, err
	}
	diags := document.Validate(ed.Document())
	if diags == nil {
		diags = []document.Diagnostic{}
	}
	return ValidationResult{Valid: !document.HasErrors(diags), Diagnostics: diags}, nil
}

func (s *Server) handleGetMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ed, err := s.sessions.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(ed.Document(), nil)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		"sceneweaver://sessions",
		"Open editing sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "sceneweaver://sessions",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(
		"sceneweaver://sessions/{id}/mermaid",
		"Session flowchart",
		mcp.WithTemplateMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		id := strings.TrimSuffix(strings.TrimPrefix(uri, "sceneweaver://sessions/"), "/mermaid")
		ed, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(ed.Document(), nil),
			},
		}, nil
	})
}
