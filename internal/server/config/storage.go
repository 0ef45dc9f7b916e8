package config

import (
	"github.com/mcnannay/peptrackr/internal/storage"
)

// ToStorageConfig converts the storage section into storage.Config.
// Zero values fall back to the storage package defaults.
func ToStorageConfig(s StorageSection) storage.Config {
	out := storage.DefaultConfig()

	if s.Engine != "" {
		out.Engine = s.Engine
	}
	if s.DSN != "" {
		out.DSN = s.DSN
	}
	if s.BusyTimeout > 0 {
		out.BusyTimeout = s.BusyTimeout
	}
	out.SlowQuery = s.SlowQuery
	if s.MemoryShards > 0 {
		out.MemoryShards = s.MemoryShards
	}

	if s.Badger.Dir != "" {
		out.Badger.Dir = s.Badger.Dir
	}
	out.Badger.GCInterval = s.Badger.GCInterval
	if s.Badger.GCDiscardRatio > 0 {
		out.Badger.GCDiscardRatio = s.Badger.GCDiscardRatio
	}
	if s.Badger.CacheSize > 0 {
		out.Badger.CacheSize = s.Badger.CacheSize
	}
	out.Badger.SyncWrites = s.Badger.SyncWrites

	return out
}
