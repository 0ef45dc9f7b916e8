// Package handler provides the HTTP request handlers for peptrackr.
//
//   - store.go: get / list / put / delete of store entries
//   - backup.go: export and import of the whole store
//   - health.go: liveness and readiness checks
//
// Handlers parse the request, call StoreService and encode the result.
// Domain errors become a JSON error body whose HTTP status is derived from
// the error code.
package handler
