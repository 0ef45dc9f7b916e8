package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/storage/storagetest"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	cfg := DefaultBadgerConfig()
	cfg.Dir = t.TempDir()
	cfg.GCInterval = 0
	cfg.SyncWrites = false

	s, err := NewBadgerStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.EntryRepository {
		return newTestBadger(t)
	})
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerStore(BadgerConfig{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Insert(ctx, &domain.Entry{Key: "k", Value: domain.MustValue(`[1]`)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || got.String() != "[1]" {
		t.Errorf("Get = %s, %v", got, err)
	}
}

func TestBadgerStore_RequiresDir(t *testing.T) {
	if _, err := NewBadgerStore(BadgerConfig{}, nil); err == nil {
		t.Error("expected error without dir")
	}
}

func TestBadgerStore_PrefixIsolation(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	// Raw keys outside the entry namespace are invisible to the store.
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta/version"), []byte("1"))
	}); err != nil {
		t.Fatalf("raw set: %v", err)
	}
	if err := s.Insert(ctx, &domain.Entry{Key: "a", Value: domain.MustValue(`1`)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v; want 1", n, err)
	}
	all, err := s.All(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("All = %v, %v; want only a", all, err)
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	cfg := DefaultBadgerConfig()
	cfg.Dir = t.TempDir()
	cfg.GCInterval = 0
	ctx := context.Background()

	s, err := NewBadgerStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	if err := s.Insert(ctx, &domain.Entry{Key: "weights", Value: domain.MustValue(`[81.2,80.9]`)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewBadgerStore(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "weights")
	if err != nil || got.String() != "[81.2,80.9]" {
		t.Errorf("Get after reopen = %s, %v", got, err)
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	s := newTestBadger(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
}

func TestBadgerStore_GCAndMetrics(t *testing.T) {
	s := newTestBadger(t)
	reg := prometheus.NewRegistry()
	s.RegisterMetrics(reg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.GC(ctx); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if s.Stats().LastGCTime == 0 {
		t.Error("LastGCTime should be set after GC")
	}

	n, err := testutil.GatherAndCount(reg,
		"peptrackr_badger_lsm_size_bytes",
		"peptrackr_badger_value_log_size_bytes",
		"peptrackr_badger_last_gc_timestamp_seconds",
		"peptrackr_badger_gc_bytes_reclaimed_total",
	)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 4 {
		t.Errorf("registered metrics = %d, want 4", n)
	}
}
