// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Default values (the target struct as passed in)
//  2. Configuration file (YAML)
//  3. Legacy environment variables (DATABASE_URL, CORS_ORIGINS)
//  4. Prefixed environment variables (PEPTRACKR_...)
//
// In prefixed variables a double underscore separates nesting levels and a
// single underscore stays part of the key:
//
//	PEPTRACKR_STORAGE__BADGER__GC_INTERVAL=5m -> storage.badger.gc_interval
//
// Watcher reports changes to the configuration file so callers can re-apply
// settings that are safe to change at runtime.
package confloader
