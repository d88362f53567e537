// Package sqlite keeps a local scenario library in a SQLite database.
// It implements ports.ScenarioStore and validates submissions the same way
// the remote store does.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	created_by_name TEXT NOT NULL DEFAULT '',
	document BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Config configures the library.
type Config struct {
	DSN string
	// Now replaces time.Now for timestamps.
	Now func() time.Time
	// NewID replaces the uuid generator for scenario ids.
	NewID func() string
}

// Store is a SQLite-backed scenario library.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Open opens (or creates) the library at cfg.DSN.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("scenario library sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("scenario library open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scenario library set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scenario library create schema: %w", err)
	}

	s := &Store{db: db, now: cfg.Now, newID: cfg.NewID}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create validates and inserts a document under a fresh id.
func (s *Store) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := document.StoreCheck(doc); err != nil {
		return document.Document{}, err
	}

	stored := doc.Clone()
	stored.ID = s.newID()
	stored.CreatedAt = s.now().UTC()
	stored.ModifiedAt = stored.CreatedAt

	body, err := json.Marshal(stored)
	if err != nil {
		return document.Document{}, fmt.Errorf("scenario library encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO scenarios (id, title, description, created_by, created_by_name, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Title, stored.Description,
		stored.CreatedBy.ID, stored.CreatedBy.Username,
		body, formatTime(stored.CreatedAt), formatTime(stored.ModifiedAt))
	if err != nil {
		return document.Document{}, fmt.Errorf("scenario library insert: %w", err)
	}
	return stored, nil
}

// Update validates and replaces a stored document, keeping its id, creator
// and creation time.
func (s *Store) Update(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return document.Document{}, err
	}
	if err := document.StoreCheck(doc); err != nil {
		return document.Document{}, err
	}

	stored := doc.Clone()
	stored.ID = id
	stored.CreatedBy = prev.CreatedBy
	stored.CreatedAt = prev.CreatedAt
	stored.ModifiedAt = s.now().UTC()

	body, err := json.Marshal(stored)
	if err != nil {
		return document.Document{}, fmt.Errorf("scenario library encode: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE scenarios
SET title = ?, description = ?, document = ?, updated_at = ?
WHERE id = ?`,
		stored.Title, stored.Description, body, formatTime(stored.ModifiedAt), id)
	if err != nil {
		return document.Document{}, fmt.Errorf("scenario library update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	return stored, nil
}

// Get loads a stored document.
func (s *Store) Get(ctx context.Context, id string) (document.Document, error) {
	var body []byte
	var createdBy, createdByName string
	err := s.db.QueryRowContext(ctx,
		`SELECT document, created_by, created_by_name FROM scenarios WHERE id = ?`, id,
	).Scan(&body, &createdBy, &createdByName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return document.Document{}, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
		}
		return document.Document{}, fmt.Errorf("scenario library get: %w", err)
	}

	var doc document.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return document.Document{}, fmt.Errorf("scenario library decode %s: %w", id, err)
	}
	// The JSON column only keeps the creator id.
	doc.CreatedBy = document.UserRef{ID: createdBy, Username: createdByName}
	return doc, nil
}

// List returns summaries in insertion order.
func (s *Store) List(ctx context.Context) ([]document.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT document, created_by, created_by_name
FROM scenarios
ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("scenario library list: %w", err)
	}
	defer rows.Close()

	var out []document.Summary
	for rows.Next() {
		var body []byte
		var createdBy, createdByName string
		if err := rows.Scan(&body, &createdBy, &createdByName); err != nil {
			return nil, fmt.Errorf("scenario library list scan: %w", err)
		}
		var doc document.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("scenario library list decode: %w", err)
		}
		doc.CreatedBy = document.UserRef{ID: createdBy, Username: createdByName}
		out = append(out, document.Summarize(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scenario library list rows: %w", err)
	}
	return out, nil
}

// Delete removes a stored document.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("scenario library delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
