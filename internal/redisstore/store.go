// Package redisstore backs transient sessions and per-project locks with
// Redis so several sitepilot processes can serve the same users.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/sitepilot/internal/session"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "sitepilot:"

// Store implements session.Store with one JSON value per user.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to "sitepilot:".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL expires idle sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix, ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(userID string) string {
	return s.prefix + "session:" + userID
}

func (s *Store) Get(ctx context.Context, userID string) (session.State, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return session.State{}, nil
	}
	if err != nil {
		return session.State{}, fmt.Errorf("redis get session: %w", err)
	}
	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return session.State{}, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return st, nil
}

func (s *Store) Put(ctx context.Context, userID string, st session.State) error {
	if st.IsNone() {
		return s.Clear(ctx, userID)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

var _ session.Store = (*Store)(nil)
