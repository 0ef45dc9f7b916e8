// Package memory provides an in-memory EntryRepository.
//
// Entries live in a sharded concurrent map (pkg/cmap) and are lost when the
// process exits. The store suits tests and ephemeral runs; every operation
// is atomic per key and values are copied on the way in and out.
package memory
