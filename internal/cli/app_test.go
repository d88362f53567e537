package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/testutils"
	"github.com/aretw0/sceneweaver/pkg/adapters/remote"
	"github.com/aretw0/sceneweaver/pkg/adapters/sqlite"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body = `version: 1
library:
  dsn: ` + filepath.Join(dir, "lib.db") + "\n" + body
	testutils.WriteFiles(t, dir, map[string]string{"sceneweaver.yaml": body})
	return filepath.Join(dir, "sceneweaver.yaml")
}

func TestBootstrap_Library(t *testing.T) {
	app, err := Bootstrap(Options{ConfigPath: writeConfig(t, "")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.IsType(t, &sqlite.Store{}, app.Store)
	assert.Nil(t, app.Identity)

	ed := sceneweaver.New(app.EditorOptions()...)
	outcome, err := ed.Save(t.Context())
	require.NoError(t, err)
	assert.Equal(t, domain.SaveCreated, outcome)

	list, err := app.Store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sceneweaver_saves_total")
}

func TestBootstrap_RemoteOverride(t *testing.T) {
	path := writeConfig(t, `auth:
  user_id: "7"
  token: secret
`)
	app, err := Bootstrap(Options{ConfigPath: path, Store: BackendRemote, LogLevel: "debug"})
	require.NoError(t, err)

	assert.IsType(t, &remote.Client{}, app.Store)
	assert.Equal(t, "7", app.Identity.UserID())
	assert.Equal(t, "debug", app.Config.Log.Level)
}

func TestBootstrap_Errors(t *testing.T) {
	_, err := Bootstrap(Options{ConfigPath: writeConfig(t, ""), Store: "ftp"})
	assert.ErrorContains(t, err, "unknown store backend")

	_, err = Bootstrap(Options{ConfigPath: writeConfig(t, ""), LogLevel: "loud"})
	assert.ErrorContains(t, err, "unknown log level")
}

func TestApp_Sessions(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		app, err := Bootstrap(Options{ConfigPath: writeConfig(t, "")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		mgr, err := app.Sessions()
		require.NoError(t, err)
		id, _, err := mgr.Create(t.Context())
		require.NoError(t, err)
		ids, err := mgr.List(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{id}, ids)
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		app, err := Bootstrap(Options{ConfigPath: writeConfig(t, "drafts:\n  backend: file\n  dir: "+dir+"\n")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		mgr, err := app.Sessions()
		require.NoError(t, err)
		id, _, err := mgr.Create(t.Context())
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, id+".json"))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		app, err := Bootstrap(Options{ConfigPath: writeConfig(t, `drafts:
  backend: redis
  redis:
    addr: `+mr.Addr()+`
    ttl: 60
`)})
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		mgr, err := app.Sessions()
		require.NoError(t, err)
		id, _, err := mgr.Create(t.Context())
		require.NoError(t, err)

		err = mgr.WithLock(t.Context(), id, func(ctx context.Context) error { return nil })
		require.NoError(t, err)

		keys := mr.Keys()
		assert.NotEmpty(t, keys)
	})

	t.Run("unknown backend", func(t *testing.T) {
		app, err := Bootstrap(Options{ConfigPath: writeConfig(t, "drafts:\n  backend: etcd\n")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })
		_, err = app.Sessions()
		assert.ErrorContains(t, err, "unknown drafts backend")
	})
}

func TestResolveDocument(t *testing.T) {
	app, err := Bootstrap(Options{ConfigPath: writeConfig(t, "")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	doc := document.Document{
		Title: "Cellar",
		Steps: []document.StepDoc{{ID: "a", Title: "Door"}},
	}
	path := filepath.Join(t.TempDir(), "cellar.yaml")
	require.NoError(t, WriteDocumentFile(path, doc, document.FormatYAML))

	got, err := app.ResolveDocument(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, "Cellar", got.Title)

	stored, err := app.Store.Create(t.Context(), doc)
	require.NoError(t, err)
	got, err = app.ResolveDocument(t.Context(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	_, err = app.ResolveDocument(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	failed := PrintDiagnostics(&buf, document.Validate(document.Document{}))
	assert.True(t, failed)
	assert.Contains(t, buf.String(), "Title required")
}
