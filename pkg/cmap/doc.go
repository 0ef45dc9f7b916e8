// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread across shards with murmur3, and each shard carries its
// own RWMutex, so operations on different keys rarely contend:
//
//	m := cmap.New[[]byte]()
//	m.Set("theme", []byte(`"dark"`))
//	val, ok := m.Get("theme")
//
// Conditional writes (SetIfAbsent, SetIfPresent, Pop) hold the shard lock for
// the whole check-and-write. Iteration locks one shard at a time, so it sees
// a per-shard consistent view only.
package cmap
