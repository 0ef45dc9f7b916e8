package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
)

// ErrClosed is returned by a store that has been closed.
var ErrClosed = errors.New("storage closed")

// entryPrefix namespaces store entries inside the Badger keyspace.
var entryPrefix = []byte("kv/")

// BadgerStore implements service.EntryRepository on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	// Serializes check-and-write operations; reads never take it.
	writeMu sync.Mutex

	lastGCTime       atomic.Int64  // Unix milliseconds
	gcBytesReclaimed atomic.Uint64 // Estimated

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCReclaimed  prometheus.Counter

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

var _ service.EntryRepository = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a Badger database in cfg.Dir.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: logger}).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSize)
	}
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}
	if cfg.NumMemtables > 0 {
		opts = opts.WithNumMemtables(cfg.NumMemtables)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func entryKey(key string) []byte {
	k := make([]byte, 0, len(entryPrefix)+len(key))
	k = append(k, entryPrefix...)
	return append(k, key...)
}

// ============================================================================
// EntryRepository
// ============================================================================

// Get retrieves the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) (domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var value domain.Value
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Find retrieves the entries among keys that exist.
func (s *BadgerStore) Find(ctx context.Context, keys []string) (map[string]domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Value, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(entryKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[key] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// All retrieves every stored entry.
func (s *BadgerStore) All(ctx context.Context) (map[string]domain.Value, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Value)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key()[len(entryPrefix):])] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether key is present.
func (s *BadgerStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert stores a new entry.
func (s *BadgerStore) Insert(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		k := entryKey(entry.Key)
		if _, err := txn.Get(k); err == nil {
			return domain.ErrEntryConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, entry.Value.Clone())
	})
}

// Replace overwrites the value of an existing entry.
func (s *BadgerStore) Replace(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		k := entryKey(entry.Key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrEntryNotFound
			}
			return err
		}
		return txn.Set(k, entry.Value.Clone())
	})
}

// Upsert stores entry whether or not the key is present.
func (s *BadgerStore) Upsert(ctx context.Context, entry *domain.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Key), entry.Value.Clone())
	})
}

// Delete removes the entry stored under key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		k := entryKey(key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrEntryNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

// Count returns the number of stored entries.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	return s.check(ctx)
}

func (s *BadgerStore) check(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

// ============================================================================
// Maintenance
// ============================================================================

// GC runs value log garbage collection until nothing more can be rewritten.
// Returns an estimate of the bytes reclaimed.
func (s *BadgerStore) GC(ctx context.Context) (uint64, error) {
	start := time.Now()

	var reclaimed uint64
	for {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return reclaimed, fmt.Errorf("gc: %w", err)
		}
		// Badger does not report the rewritten size.
		reclaimed += 1 << 20
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcBytesReclaimed.Add(reclaimed)
	if s.metricsGCReclaimed != nil {
		s.metricsGCReclaimed.Add(float64(reclaimed))
	}

	s.logger.Debug("badger gc completed",
		"bytes_reclaimed", reclaimed,
		"elapsed", time.Since(start))

	return reclaimed, nil
}

// BadgerStats contains storage engine statistics.
type BadgerStats struct {
	LSMSize          uint64
	ValueLogSize     uint64
	LastGCTime       int64 // Unix milliseconds, 0 if never
	GCBytesReclaimed uint64
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats() BadgerStats {
	lsm, vlog := s.db.Size()
	return BadgerStats{
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTime:       s.lastGCTime.Load(),
		GCBytesReclaimed: s.gcBytesReclaimed.Load(),
	}
}

// Close stops background work and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh

		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		s.logger.Info("badger store closed")
	})
	return err
}

// RegisterMetrics registers Badger size and GC metrics and starts the
// updater. Call at most once.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peptrackr",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peptrackr",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peptrackr",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	s.metricsGCReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "peptrackr",
		Subsystem: "badger",
		Name:      "gc_bytes_reclaimed_total",
		Help:      "Estimated bytes reclaimed by Badger garbage collection",
	})

	reg.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCReclaimed,
	)

	s.updateMetrics()
	go s.metricsLoop()

	return s
}

func (s *BadgerStore) updateMetrics() {
	if s.db.IsClosed() {
		return
	}
	stats := s.Stats()
	s.metricsLSMSize.Set(float64(stats.LSMSize))
	s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

func (s *BadgerStore) metricsLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	if s.cfg.InMemory || s.cfg.GCInterval <= 0 {
		<-s.stopCh
		return
	}

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("badger auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
// Badger's info chatter is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
