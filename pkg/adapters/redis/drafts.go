// Package redis persists editing-session drafts and session locks in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/sceneweaver/pkg/document"
	"github.com/aretw0/sceneweaver/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "sceneweaver:draft:"

// farFuture is the index score of drafts that never expire (2100-01-01).
const farFuture = 4102444800

// DraftStore implements ports.DraftStore using Redis.
// Each draft is a JSON wire document under <prefix><session>; a ZSET at
// <prefix>index scores sessions by expiry so List can prune lazily.
type DraftStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*DraftStore)

// WithTTL sets the expiration for drafts. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *DraftStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for drafts.
func WithPrefix(prefix string) Option {
	return func(s *DraftStore) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now for index scores.
func WithClock(now func() time.Time) Option {
	return func(s *DraftStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New connects to a Redis server.
func New(address, password string, db int, opts ...Option) *DraftStore {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *DraftStore {
	store := &DraftStore{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying connection, e.g. to share it with a Locker.
func (s *DraftStore) Client() *backend.Client {
	return s.client
}

func (s *DraftStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *DraftStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the draft and refreshes its index entry in one pipeline.
func (s *DraftStore) Save(ctx context.Context, sessionID string, draft document.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	score := float64(farFuture)
	if s.ttl > 0 {
		score = float64(s.now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save draft to redis: %w", err)
	}
	return nil
}

// Load reads a draft.
func (s *DraftStore) Load(ctx context.Context, sessionID string) (document.Draft, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return document.Draft{}, domain.ErrSessionNotFound
		}
		return document.Draft{}, fmt.Errorf("failed to get draft from redis: %w", err)
	}

	var draft document.Draft
	if err := json.Unmarshal(val, &draft); err != nil {
		return document.Draft{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return draft, nil
}

// Delete removes a draft and its index entry.
func (s *DraftStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// List prunes expired index entries and returns the remaining sessions.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	now := float64(s.now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired drafts: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *DraftStore) Close() error {
	return s.client.Close()
}
