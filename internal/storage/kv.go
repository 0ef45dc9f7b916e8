package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/storage/memory"
	"github.com/mcnannay/peptrackr/internal/storage/sqlstore"
)

// Supported storage engines.
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Config selects and configures the storage backend.
type Config struct {
	// Engine is one of "sqlite", "badger" or "memory".
	// Default: "sqlite"
	Engine string

	// DSN is the SQLite database URL (sqlite engine only).
	// Default: "sqlite:///./data.db"
	DSN string

	// BusyTimeout bounds how long a SQLite writer waits on a lock.
	// Default: 5s
	BusyTimeout time.Duration

	// SlowQuery logs SQL statements slower than this (0 disables).
	// Default: 200ms
	SlowQuery time.Duration

	// MemoryShards is the shard count of the memory engine.
	// Default: 16
	MemoryShards int

	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the database directory.
	// Default: "data/badger"
	Dir string

	// InMemory keeps everything in RAM (tests).
	InMemory bool

	// GCInterval is the interval between value log GC runs (0 disables).
	// Default: 10m
	GCInterval time.Duration

	// GCDiscardRatio is the stale fraction a value log file needs before
	// it is rewritten (0.0-1.0).
	// Default: 0.5
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites fsyncs after each write.
	// Default: true
	SyncWrites bool
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		Engine:       EngineSQLite,
		DSN:          "sqlite:///./data.db",
		BusyTimeout:  5 * time.Second,
		SlowQuery:    200 * time.Millisecond,
		MemoryShards: 16,
		Badger:       DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		Dir:              "data/badger",
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
		SyncWrites:       true,
	}
}

// Open constructs the repository selected by cfg.Engine.
//
// reg may be nil; when set, engine-specific metrics are registered on it.
func Open(cfg Config, logger *slog.Logger, reg prometheus.Registerer) (service.EntryRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("engine", cfg.Engine)

	switch strings.ToLower(cfg.Engine) {
	case EngineSQLite, "":
		return sqlstore.Open(sqlstore.Config{
			DSN:         cfg.DSN,
			BusyTimeout: cfg.BusyTimeout,
			SlowQuery:   cfg.SlowQuery,
		}, logger)

	case EngineBadger:
		s, err := NewBadgerStore(cfg.Badger, logger)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			s.RegisterMetrics(reg)
		}
		return s, nil

	case EngineMemory:
		logger.Warn("memory engine selected: entries are lost on exit")
		return memory.New(memory.WithShards(cfg.MemoryShards)), nil

	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
