// Package logger provides structured logging for PepTrackr.
//
// It configures log/slog with:
//
//   - logger.go: JSON/text handlers and a process-wide dynamic level
//   - context.go: request IDs carried in context and added to records
//   - redact.go: masking of credentials in attribute values
//
// The level can be changed at runtime with SetLevel (the config watcher does
// this when the config file changes).
package logger
