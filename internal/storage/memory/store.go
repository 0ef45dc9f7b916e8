package memory

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/pkg/cmap"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store holds entries in a sharded concurrent map.
type Store struct {
	entries *cmap.Map[domain.Value]
	closed  atomic.Bool
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the number of map shards (power of 2).
func WithShards(n int) Option {
	return func(o *storeOptions) {
		o.shards = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		entries: cmap.NewWithShards[domain.Value](o.shards),
	}
}

var _ service.EntryRepository = (*Store)(nil)

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	v, ok := s.entries.Get(key)
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return v.Clone(), nil
}

// Find retrieves the entries among keys that exist.
func (s *Store) Find(ctx context.Context, keys []string) (map[string]domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Value, len(keys))
	for _, key := range keys {
		if v, ok := s.entries.Get(key); ok {
			out[key] = v.Clone()
		}
	}
	return out, nil
}

// All retrieves every stored entry.
func (s *Store) All(ctx context.Context) (map[string]domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := s.entries.Snapshot()
	for k, v := range out {
		out[k] = v.Clone()
	}
	return out, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	return s.entries.Has(key), nil
}

// Insert stores a new entry.
func (s *Store) Insert(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if !s.entries.SetIfAbsent(entry.Key, entry.Value.Clone()) {
		return domain.ErrEntryConflict
	}
	return nil
}

// Replace overwrites the value of an existing entry.
func (s *Store) Replace(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if !s.entries.SetIfPresent(entry.Key, entry.Value.Clone()) {
		return domain.ErrEntryNotFound
	}
	return nil
}

// Upsert stores entry whether or not the key is present.
func (s *Store) Upsert(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.entries.Set(entry.Key, entry.Value.Clone())
	return nil
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.entries.Pop(key); !ok {
		return domain.ErrEntryNotFound
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return s.entries.Count(), nil
}

// Ping reports whether the store is still open.
func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Close drops every entry. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.entries.Clear()
	}
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}
