// Package loam maps a directory of step files to scenario documents.
//
// Each step is one file: the markdown body is the step description and the
// frontmatter carries id, title, order, choices and location.
package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/document"
)

// Repository reads and writes scenario step files.
type Repository struct {
	Repo   *loam.TypedRepository[StepMetadata]
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New wraps an existing typed loam repository.
func New(repo *loam.TypedRepository[StepMetadata], opts ...Option) *Repository {
	r := &Repository{Repo: repo, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open initializes loam on dir. A read-only repository never writes to
// disk; exporting requires readOnly=false.
func Open(dir string, readOnly bool, opts ...Option) (*Repository, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	loamOpts := []loam.Option{loam.WithStrict(true)}
	if readOnly {
		loamOpts = append(loamOpts, loam.WithReadOnly(true))
	} else {
		loamOpts = append(loamOpts, loam.WithVersioning(false))
	}
	repo, err := loam.Init(absPath, loamOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StepMetadata](repo), opts...), nil
}

type orderedStep struct {
	order int
	step  document.StepDoc
}

// Import assembles every step file into one document titled title.
// Step ids default to the file name without extension; two files mapping to
// the same id are an error. README files are skipped.
func (r *Repository) Import(ctx context.Context, title string) (document.Document, error) {
	docs, err := r.Repo.List(ctx)
	if err != nil {
		return document.Document{}, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	steps := make([]orderedStep, 0, len(docs))
	for _, d := range docs {
		if strings.EqualFold(trimExtension(filepath.Base(d.ID)), "readme") {
			continue
		}
		rawID := d.Data.ID
		if rawID == "" {
			rawID = d.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return document.Document{}, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, d.ID)
		}
		seen[id] = d.ID

		// List carries frontmatter only; the body needs a direct lookup.
		full, err := r.Repo.Get(ctx, d.ID)
		if err != nil {
			return document.Document{}, fmt.Errorf("loam get failed for %s: %w", d.ID, err)
		}

		step, err := toStep(id, d.Data, full.Content)
		if err != nil {
			return document.Document{}, fmt.Errorf("step %s: %w", id, err)
		}
		steps = append(steps, orderedStep{order: d.Data.Order, step: step})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].order != steps[j].order {
			return steps[i].order < steps[j].order
		}
		return steps[i].step.ID < steps[j].step.ID
	})

	out := document.Document{Title: title, Steps: make([]document.StepDoc, len(steps))}
	for i, s := range steps {
		out.Steps[i] = s.step
	}
	r.logger.Debug("scenario imported", "steps", len(out.Steps))
	return out, nil
}

func toStep(id string, meta StepMetadata, content string) (document.StepDoc, error) {
	title := meta.Title
	if title == "" {
		title = id
	}
	step := document.StepDoc{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(content),
		Choices:     make([]document.ChoiceDoc, 0, len(meta.Choices)),
	}
	for _, c := range meta.Choices {
		next := c.Next
		if next == "" {
			next = c.To
		}
		step.Choices = append(step.Choices, document.ChoiceDoc{Text: c.Text, Next: trimExtension(next)})
	}
	if meta.Location != nil {
		lat, err := coordinate(meta.Location.Latitude)
		if err != nil {
			return step, fmt.Errorf("location.latitude: %w", err)
		}
		lng, err := coordinate(meta.Location.Longitude)
		if err != nil {
			return step, fmt.Errorf("location.longitude: %w", err)
		}
		step.Location = &document.LocationDoc{
			Title:       meta.Location.Title,
			Description: meta.Location.Description,
			Latitude:    document.Coordinate(lat),
			Longitude:   document.Coordinate(lng),
		}
	}
	return step, nil
}

func coordinate(v any) (float64, error) {
	switch c := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return c, nil
	case int:
		return float64(c), nil
	case int64:
		return float64(c), nil
	case json.Number:
		return c.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(c), 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

// Export writes one markdown file per step of doc. Existing files with the
// same ids are overwritten.
func (r *Repository) Export(ctx context.Context, doc document.Document) error {
	for i, s := range doc.Steps {
		meta := StepMetadata{
			ID:      s.ID,
			Title:   s.Title,
			Order:   i + 1,
			Choices: make([]ChoiceMetadata, 0, len(s.Choices)),
		}
		for _, c := range s.Choices {
			meta.Choices = append(meta.Choices, ChoiceMetadata{Text: c.Text, Next: c.Next})
		}
		if s.Location != nil {
			meta.Location = &LocationMeta{
				Title:       s.Location.Title,
				Description: s.Location.Description,
				Latitude:    float64(s.Location.Latitude),
				Longitude:   float64(s.Location.Longitude),
			}
		}
		err := r.Repo.Save(ctx, &loam.DocumentModel[StepMetadata]{
			ID:      s.ID,
			Content: s.Description,
			Data:    meta,
		})
		if err != nil {
			return fmt.Errorf("save step %s: %w", s.ID, err)
		}
	}
	r.logger.Debug("scenario exported", "steps", len(doc.Steps))
	return nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
