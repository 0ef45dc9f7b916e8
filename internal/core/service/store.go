package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/mcnannay/peptrackr/internal/core/domain"
)

// EntryRepository defines the storage interface for store entries.
//
// Every method is one short-lived unit of work against the backing store.
// Implementations return domain.ErrEntryNotFound for absent keys and
// domain.ErrEntryConflict when Insert finds the key already present.
type EntryRepository interface {
	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) (domain.Value, error)

	// Find retrieves the entries among keys that exist.
	Find(ctx context.Context, keys []string) (map[string]domain.Value, error)

	// All retrieves every stored entry.
	All(ctx context.Context) (map[string]domain.Value, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Insert stores a new entry.
	Insert(ctx context.Context, entry *domain.Entry) error

	// Replace overwrites the value of an existing entry.
	Replace(ctx context.Context, entry *domain.Entry) error

	// Upsert stores entry whether or not the key is present.
	Upsert(ctx context.Context, entry *domain.Entry) error

	// Delete removes the entry stored under key.
	Delete(ctx context.Context, key string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// Observer receives the outcome of each store operation.
type Observer interface {
	ObserveOp(op, result string, elapsed time.Duration)
}

// Operation names reported to the Observer.
const (
	OpGet     = "get"
	OpGetMany = "get_many"
	OpPut     = "put"
	OpDelete  = "delete"
)

// Operation results reported to the Observer.
const (
	ResultOK       = "ok"
	ResultCreated  = "created"
	ResultReplaced = "replaced"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

type noopObserver struct{}

func (noopObserver) ObserveOp(string, string, time.Duration) {}

// StoreService implements get / get-many / put / delete over an EntryRepository.
//
// The service keeps no state between calls; concurrent writes to the same key
// resolve at the storage layer (last writer wins).
type StoreService struct {
	repo     EntryRepository
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// StoreOption configures a StoreService.
type StoreOption func(*StoreService)

// WithObserver sets the operation observer (metrics).
func WithObserver(o Observer) StoreOption {
	return func(s *StoreService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *StoreService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for backup timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *StoreService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStoreService creates a new StoreService.
func NewStoreService(repo EntryRepository, opts ...StoreOption) *StoreService {
	s := &StoreService{
		repo:     repo,
		observer: noopObserver{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutResult acknowledges a Put.
type PutResult struct {
	Key     string
	Created bool // true when the key did not exist before
}

// ============================================================================
// Read Operations
// ============================================================================

// Get returns the value stored under key.
func (s *StoreService) Get(ctx context.Context, key string) (domain.Value, error) {
	start := time.Now()

	if err := domain.ValidateKey(key); err != nil {
		// An invalid key can never have been stored.
		s.observer.ObserveOp(OpGet, ResultNotFound, time.Since(start))
		return nil, domain.ErrEntryNotFound.WithDetails(key)
	}

	value, err := s.repo.Get(ctx, key)
	if err != nil {
		s.observer.ObserveOp(OpGet, resultOf(err), time.Since(start))
		return nil, s.classify(err, "get", key)
	}

	s.observer.ObserveOp(OpGet, ResultOK, time.Since(start))
	return value, nil
}

// GetMany returns the stored entries among keys.
//
// A nil keys slice returns every entry. Requested keys that are absent (or
// could never be stored) are omitted from the result without error.
func (s *StoreService) GetMany(ctx context.Context, keys []string) (map[string]domain.Value, error) {
	start := time.Now()

	var (
		result map[string]domain.Value
		err    error
	)

	if keys == nil {
		result, err = s.repo.All(ctx)
	} else {
		wanted := uniqueValidKeys(keys)
		if len(wanted) == 0 {
			s.observer.ObserveOp(OpGetMany, ResultOK, time.Since(start))
			return map[string]domain.Value{}, nil
		}
		result, err = s.repo.Find(ctx, wanted)
	}

	if err != nil {
		s.observer.ObserveOp(OpGetMany, ResultError, time.Since(start))
		return nil, s.classify(err, "get_many", "")
	}
	if result == nil {
		result = map[string]domain.Value{}
	}

	s.observer.ObserveOp(OpGetMany, ResultOK, time.Since(start))
	return result, nil
}

// Count returns the number of stored entries.
func (s *StoreService) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

// Ping checks that the backing store is reachable.
func (s *StoreService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return domain.ErrServiceUnavailable.WithCause(err)
	}
	return nil
}

// ============================================================================
// Write Operations
// ============================================================================

// Put inserts value under key or replaces the existing value wholesale.
//
// The key is looked up first and the call branches into an insert or a
// replace; either path ends in a single committed write. If the branch loses
// a race with a concurrent writer it switches to the other path once, and if
// that loses too the write is settled with an upsert. Put never reports
// not-found or conflict for a valid key.
func (s *StoreService) Put(ctx context.Context, key string, value domain.Value) (*PutResult, error) {
	start := time.Now()

	// 1. Validate input
	entry, err := domain.NewEntry(key, value)
	if err != nil {
		s.observer.ObserveOp(OpPut, ResultInvalid, time.Since(start))
		return nil, err
	}

	// 2. Look up the current row
	exists, err := s.repo.Exists(ctx, key)
	if err != nil {
		s.observer.ObserveOp(OpPut, ResultError, time.Since(start))
		return nil, s.classify(err, "put", key)
	}

	// 3. Insert or replace
	created := !exists
	if exists {
		err = s.repo.Replace(ctx, entry)
		if errors.Is(err, domain.ErrEntryNotFound) {
			// Deleted between lookup and write.
			created = true
			err = s.repo.Insert(ctx, entry)
		}
	} else {
		err = s.repo.Insert(ctx, entry)
		if errors.Is(err, domain.ErrEntryConflict) {
			// Inserted by someone else between lookup and write.
			created = false
			err = s.repo.Replace(ctx, entry)
		}
	}
	if lostRace(err) {
		// A second concurrent write or delete interleaved with the fallback.
		created = errors.Is(err, domain.ErrEntryNotFound)
		err = s.repo.Upsert(ctx, entry)
	}
	if err != nil {
		s.observer.ObserveOp(OpPut, ResultError, time.Since(start))
		return nil, s.classify(err, "put", key)
	}

	result := ResultReplaced
	if created {
		result = ResultCreated
	}
	s.observer.ObserveOp(OpPut, result, time.Since(start))
	s.logger.Debug("entry stored", "key", key, "created", created, "size", len(value))

	return &PutResult{Key: key, Created: created}, nil
}

// Delete removes the entry stored under key.
func (s *StoreService) Delete(ctx context.Context, key string) error {
	start := time.Now()

	if err := domain.ValidateKey(key); err != nil {
		s.observer.ObserveOp(OpDelete, ResultNotFound, time.Since(start))
		return domain.ErrEntryNotFound.WithDetails(key)
	}

	if err := s.repo.Delete(ctx, key); err != nil {
		s.observer.ObserveOp(OpDelete, resultOf(err), time.Since(start))
		return s.classify(err, "delete", key)
	}

	s.observer.ObserveOp(OpDelete, ResultOK, time.Since(start))
	s.logger.Debug("entry deleted", "key", key)
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// classify passes domain errors through and wraps everything else as a
// storage failure.
func (s *StoreService) classify(err error, op, key string) error {
	if errors.Is(err, domain.ErrEntryNotFound) {
		return domain.ErrEntryNotFound.WithDetails(key)
	}
	if domain.IsDomainError(err, "") {
		return err
	}
	s.logger.Error("storage operation failed", "op", op, "key", key, "error", err)
	return domain.ErrStorageError.WithCause(err)
}

func lostRace(err error) bool {
	return errors.Is(err, domain.ErrEntryNotFound) || errors.Is(err, domain.ErrEntryConflict)
}

func resultOf(err error) string {
	if errors.Is(err, domain.ErrEntryNotFound) {
		return ResultNotFound
	}
	return ResultError
}

// uniqueValidKeys drops duplicates and keys that can never be stored, and
// returns the rest sorted.
func uniqueValidKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if domain.ValidateKey(k) != nil {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
