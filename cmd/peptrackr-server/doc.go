// Package main provides the entry point for peptrackr-server.
//
// The server provides:
//
//   - the HTTP API for store entries and backups
//   - an optional Redis-protocol listener over the same store
//   - Prometheus metrics
//
// Usage:
//
//	peptrackr-server [--config /path/to/config.yaml]
//	peptrackr-server check-config --config /path/to/config.yaml
//
// SIGINT/SIGTERM shut the server down gracefully; SIGHUP (or an edit of
// the config file) reloads the log level.
package main
