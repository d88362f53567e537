// Package file keeps session drafts as JSON files on the local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
)

// DefaultDir is used when New gets an empty directory.
var DefaultDir = filepath.Join(".sceneweaver", "drafts")

// DraftStore implements ports.DraftStore with one file per session.
type DraftStore struct {
	BasePath string
}

// New creates a DraftStore rooted at basePath.
func New(basePath string) *DraftStore {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &DraftStore{BasePath: basePath}
}

func (s *DraftStore) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+".json"), nil
}

// Save writes the draft atomically: a synced temp file in the same
// directory is renamed over the destination.
func (s *DraftStore) Save(ctx context.Context, sessionID string, draft document.Draft) error {
	destPath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure draft directory: %w", err)
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file, nor rename over an existing one.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to replace draft file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move draft into place: %w", err)
	}
	return nil
}

// Load reads the draft of a session.
func (s *DraftStore) Load(ctx context.Context, sessionID string) (document.Draft, error) {
	filePath, err := s.path(sessionID)
	if err != nil {
		return document.Draft{}, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return document.Draft{}, domain.ErrSessionNotFound
		}
		return document.Draft{}, fmt.Errorf("failed to read draft file: %w", err)
	}

	var draft document.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return document.Draft{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return draft, nil
}

// Delete removes the draft file. Missing drafts are not an error.
func (s *DraftStore) Delete(ctx context.Context, sessionID string) error {
	filePath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete draft file: %w", err)
	}
	return nil
}

// List returns the ids of all drafts on disk.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}
