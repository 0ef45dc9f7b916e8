// Package sqlstore provides a SQL-backed EntryRepository on gorm and SQLite.
//
// Entries live in a single table:
//
//	kv(key TEXT PRIMARY KEY, value JSON NOT NULL)
//
// The schema is created and versioned by gormigrate on Open. Every repository
// method runs one statement (or one short transaction) scoped to the caller's
// context.
package sqlstore
