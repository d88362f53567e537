package remote_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/sceneweaver/pkg/adapters/memory"
	"github.com/aretw0/sceneweaver/pkg/adapters/remote"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/ports/tests"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves the REST API on top of an in-memory store.
func fakeStore(t *testing.T, token string) *httptest.Server {
	t.Helper()
	backend := memory.NewScenarioStore()

	writeErr := func(w http.ResponseWriter, err error) {
		var rv *domain.RemoteValidationError
		switch {
		case errors.As(err, &rv):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(rv.Payload)
		case errors.Is(err, domain.ErrScenarioNotFound):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail": "Not found."}`))
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail": "Authentication credentials were not provided."}`))
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/scenarios/", func(w http.ResponseWriter, req *http.Request) {
		var doc document.Document
		if err := json.NewDecoder(req.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := backend.Create(req.Context(), doc)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	})
	r.Get("/api/scenarios/", func(w http.ResponseWriter, req *http.Request) {
		list, _ := backend.List(req.Context())
		out := make([]document.Document, 0, len(list))
		for _, s := range list {
			d, _ := backend.Get(req.Context(), s.ID)
			out = append(out, d)
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "results": out})
	})
	r.Get("/api/scenarios/{id}/", func(w http.ResponseWriter, req *http.Request) {
		out, err := backend.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Put("/api/scenarios/{id}/", func(w http.ResponseWriter, req *http.Request) {
		var doc document.Document
		_ = json.NewDecoder(req.Body).Decode(&doc)
		out, err := backend.Update(req.Context(), chi.URLParam(req, "id"), doc)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Delete("/api/scenarios/{id}/", func(w http.ResponseWriter, req *http.Request) {
		if err := backend.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Contract(t *testing.T) {
	srv := fakeStore(t, "secret")
	client, err := remote.New(srv.URL+"/api/", remote.WithIdentity(remote.StaticIdentity{User: "u1", BearerToken: "secret"}))
	require.NoError(t, err)

	tests.ScenarioStoreContractTest(t, client)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := fakeStore(t, "secret")
	client, err := remote.New(srv.URL + "/api")
	require.NoError(t, err)

	_, err = client.List(t.Context())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "credentials were not provided")
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"validation", http.StatusBadRequest, `{"steps": {"a": ["Title required"]}}`, func(t *testing.T, err error) {
			rv, ok := remote.IsValidation(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, rv.Status)
			assert.JSONEq(t, `{"steps": {"a": ["Title required"]}}`, string(rv.Payload))
		}},
		{"not found", http.StatusNotFound, `{"detail": "Not found."}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
		}},
		{"forbidden", http.StatusForbidden, `{"detail": "nope"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}},
		{"server error", http.StatusBadGateway, `<html>bad gateway</html>`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrRemoteFailure)
			_, ok := remote.IsValidation(err)
			assert.False(t, ok)
		}},
		{"malformed body", http.StatusOK, `{"id": `, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrRemoteFailure)
		}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := remote.New(srv.URL)
			require.NoError(t, err)
			_, err = client.Get(t.Context(), "x")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := remote.New(url)
	require.NoError(t, err)
	_, err = client.Create(t.Context(), document.Document{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrRemoteFailure)
}

func TestClient_ListAcceptsBareArrayAndExpandedAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scenarios/", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": "s1", "title": "One", "description": "",
			"created_by": {"id": 3, "username": "marta"},
			"created_at": "2025-01-02T03:04:05Z", "steps_count": 7, "steps": []}]`))
	}))
	defer srv.Close()

	client, err := remote.New(srv.URL)
	require.NoError(t, err)
	list, err := client.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, document.Author{ID: "3", Username: "marta"}, list[0].CreatedBy)
	assert.Equal(t, 7, list[0].Steps)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := remote.New("ftp://example.com")
	assert.Error(t, err)
	_, err = remote.New("::")
	assert.Error(t, err)
}
