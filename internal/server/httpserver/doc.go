// Package httpserver provides the HTTP/HTTPS server for peptrackr.
//
// Routes (store and backup routes sit under the configurable API prefix,
// /api/v1 by default):
//
//   - GET /store, GET|PUT|DELETE /store/{key}
//   - GET /backup/export, POST /backup/import
//   - GET /health, GET /ready, GET /metrics
//
// Middleware: Recover, RequestID, Metrics, Audit, CORS, RateLimit, MaxBytes.
package httpserver
