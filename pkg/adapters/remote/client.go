// Package remote talks to the scenario store over its REST API.
//
//	POST   /scenarios/        create
//	GET    /scenarios/        list
//	GET    /scenarios/{id}/   retrieve, steps and choices expanded
//	PUT    /scenarios/{id}/   update
//	DELETE /scenarios/{id}/   delete
//
// Requests carry the identity's token as a bearer credential. There is no
// retry: a request runs once and its outcome is returned to the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/ports"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Client implements ports.ScenarioStore against the remote store.
type Client struct {
	base     *url.URL
	http     *http.Client
	identity ports.Identity
	logger   *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithIdentity sets the credentials source.
func WithIdentity(id ports.Identity) Option {
	return func(c *Client) { c.identity = id }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid store url %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create submits a new scenario.
func (c *Client) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	var out document.Document
	err := c.do(ctx, http.MethodPost, "/scenarios/", doc, &out)
	return out, err
}

// Update replaces the scenario identified by id.
func (c *Client) Update(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	var out document.Document
	err := c.do(ctx, http.MethodPut, scenarioPath(id), doc, &out)
	return out, err
}

// Get retrieves a scenario.
func (c *Client) Get(ctx context.Context, id string) (document.Document, error) {
	var out document.Document
	err := c.do(ctx, http.MethodGet, scenarioPath(id), nil, &out)
	return out, err
}

// List returns scenario summaries. Both a bare array and a paginated
// {"results": [...]} envelope are accepted.
func (c *Client) List(ctx context.Context) ([]document.Summary, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/scenarios/", nil, &raw); err != nil {
		return nil, err
	}

	var docs []listEntry
	if err := json.Unmarshal(raw, &docs); err != nil {
		var page struct {
			Results []listEntry `json:"results"`
		}
		if perr := json.Unmarshal(raw, &page); perr != nil {
			return nil, fmt.Errorf("%w: malformed list response: %v", domain.ErrRemoteFailure, err)
		}
		docs = page.Results
	}

	out := make([]document.Summary, 0, len(docs))
	for _, d := range docs {
		s := document.Summarize(d.Document)
		if d.StepCount != nil && len(d.Steps) == 0 {
			s.Steps = *d.StepCount
		}
		out = append(out, s)
	}
	return out, nil
}

// listEntry is a document that may come without expanded steps.
type listEntry struct {
	document.Document
	StepCount *int `json:"steps_count,omitempty"`
}

// Delete removes a scenario.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, scenarioPath(id), nil, nil)
}

func scenarioPath(id string) string {
	return "/scenarios/" + url.PathEscape(id) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := *c.base
	u.Path += path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.identity != nil {
		if token := c.identity.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("store request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteFailure, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrRemoteFailure, err)
	}
	c.logger.Debug("store request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if err := statusError(resp.StatusCode, payload); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: malformed response: %w", domain.ErrRemoteFailure, err)
	}
	return nil
}

func statusError(status int, payload []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &domain.RemoteValidationError{Status: status, Payload: payload}
	case status == http.StatusNotFound:
		return domain.ErrScenarioNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, detail(payload))
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRemoteFailure, status, detail(payload))
	}
}

// detail extracts {"detail": "..."} or falls back to the trimmed body.
func detail(payload []byte) string {
	var d struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &d); err == nil && d.Detail != "" {
		return d.Detail
	}
	s := strings.TrimSpace(string(payload))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}

// IsValidation reports whether err is a store-side rejection and returns it.
func IsValidation(err error) (*domain.RemoteValidationError, bool) {
	var rv *domain.RemoteValidationError
	ok := errors.As(err, &rv)
	return rv, ok
}
