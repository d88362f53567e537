package sceneweaver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/edgelabel"
	"github.com/aretw0/sceneweaver/pkg/graph"
	"github.com/aretw0/sceneweaver/pkg/layout"
	"github.com/aretw0/sceneweaver/pkg/ports"
)

// Editor owns one scenario for the duration of an editing session.
// It is safe for concurrent use; operations are serialized.
type Editor struct {
	mu     sync.Mutex
	meta   domain.Metadata
	graph  *graph.Graph
	labels *edgelabel.Editor

	store    ports.ScenarioStore
	identity ports.Identity
	notifier ports.Notifier
	hooks    domain.EditorHooks

	layoutCfg  layout.Config
	nodeWidth  float64
	nodeHeight float64

	newID  func() string
	logger *slog.Logger

	saving atomic.Bool
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithStore sets the scenario store used by Open and Save.
func WithStore(store ports.ScenarioStore) Option {
	return func(e *Editor) {
		e.store = store
	}
}

// WithIdentity sets who is editing. New scenarios record its user id as creator.
func WithIdentity(id ports.Identity) Option {
	return func(e *Editor) {
		e.identity = id
	}
}

// WithNotifier sets where toast-level notices go. By default they are logged.
func WithNotifier(n ports.Notifier) Option {
	return func(e *Editor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.EditorHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLayout sets the separation parameters of the layout engine.
func WithLayout(cfg layout.Config) Option {
	return func(e *Editor) {
		e.layoutCfg = cfg
	}
}

// WithNodeSize sets the nominal size of a rendered step.
func WithNodeSize(width, height float64) Option {
	return func(e *Editor) {
		if width > 0 && height > 0 {
			e.nodeWidth, e.nodeHeight = width, height
		}
	}
}

// WithIDGenerator replaces the uuid generator for steps and choices.
func WithIDGenerator(gen func() string) Option {
	return func(e *Editor) {
		e.newID = gen
	}
}

func newEditor(opts []Option) *Editor {
	e := &Editor{
		layoutCfg:  layout.DefaultConfig(),
		nodeWidth:  domain.NodeWidth,
		nodeHeight: domain.NodeHeight,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = logNotifier{logger: e.logger}
	}
	return e
}

func (e *Editor) graphOptions() []graph.Option {
	opts := []graph.Option{graph.WithLogger(e.logger)}
	if e.newID != nil {
		opts = append(opts, graph.WithIDGenerator(e.newID))
	}
	return opts
}

func (e *Editor) adopt(meta domain.Metadata, g *graph.Graph) {
	e.meta = meta
	e.graph = g
	e.labels = edgelabel.New(g)
}

// log returns the logger enriched with the current scenario id.
// Callers hold e.mu or own the editor exclusively.
func (e *Editor) log() *slog.Logger {
	if e.meta.ID == "" {
		return e.logger
	}
	return e.logger.With("scenario", e.meta.ID)
}

// New starts a fresh scenario seeded with a single "Start" step.
func New(opts ...Option) *Editor {
	e := newEditor(opts)
	meta := domain.Metadata{
		Title:       domain.DefaultScenarioTitle,
		Description: domain.DefaultScenarioDescription,
	}
	if e.identity != nil {
		meta.CreatedBy = e.identity.UserID()
	}
	g := graph.New(e.graphOptions()...)
	g.AddStepWith(domain.StartStepTitle, domain.StartStepDescription, domain.StartPosition)
	e.adopt(meta, g)
	return e
}

// Open loads an existing scenario from the store and lays it out once.
// Any failure is reported as domain.ErrLoadFailed wrapping the cause.
func Open(ctx context.Context, id string, opts ...Option) (*Editor, error) {
	e := newEditor(opts)
	start := time.Now()

	var err error
	if e.store == nil {
		err = domain.ErrNoStore
	} else {
		var doc document.Document
		if doc, err = e.store.Get(ctx, id); err == nil {
			err = e.restore(ctx, document.Draft{Document: doc})
		}
	}

	if e.hooks.OnLoad != nil {
		e.hooks.OnLoad(ctx, &domain.LoadEvent{Timestamp: start, ScenarioID: id, Err: err})
	}
	if err != nil {
		e.logger.Error("scenario load failed", "scenario", id, "error", err)
		e.notifier.Notify(ctx, domain.Notice{
			Level:       domain.NoticeError,
			Title:       "Cannot load scenario",
			Description: err.Error(),
		})
		return nil, fmt.Errorf("%w %s: %w", domain.ErrLoadFailed, id, err)
	}
	e.log().Info("scenario loaded", "steps", e.graph.Len())
	return e, nil
}

// FromDocument starts a session from a wire document, e.g. an imported
// file. The graph is laid out once.
func FromDocument(ctx context.Context, doc document.Document, opts ...Option) (*Editor, error) {
	return FromDraft(ctx, document.Draft{Document: doc}, opts...)
}

// FromDraft restores a session from its draft. Positions, slots and errors
// recorded in the draft are kept; a draft without layout is laid out once.
func FromDraft(ctx context.Context, d document.Draft, opts ...Option) (*Editor, error) {
	e := newEditor(opts)
	if err := e.restore(ctx, d); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Editor) restore(ctx context.Context, d document.Draft) error {
	meta, g, err := document.FromDraft(d, e.graphOptions()...)
	if err != nil {
		return err
	}
	e.adopt(meta, g)
	if d.Layout != nil {
		if edit := d.Layout.LabelEdit; edit != nil && e.labels.Open(edit.ChoiceID) == nil {
			e.labels.Type(edit.Draft)
		}
		return nil
	}
	ev := e.runLayout()
	if e.hooks.OnLayout != nil {
		e.hooks.OnLayout(ctx, &ev)
	}
	return nil
}

// logNotifier is the default Notifier.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, notice domain.Notice) {
	n.logger.DebugContext(ctx, "notice", "level", notice.Level, "title", notice.Title, "description", notice.Description)
}
