// Package storage selects and opens the persistent backend of the store.
//
// Three engines implement service.EntryRepository:
//
//   - sqlite (default): gorm over SQLite, table kv (package sqlstore)
//   - badger: embedded LSM store, keys namespaced under "kv/" (BadgerStore)
//   - memory: sharded map, not persistent (package memory)
//
// Open picks one from Config.Engine. The repository is built once in main
// and injected into the service; nothing here is global.
package storage
