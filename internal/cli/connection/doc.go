// Package connection provides the HTTP client peptrackr-cli uses to talk to
// a peptrackr server.
//
// Store keys are path-escaped, so keys containing slashes or spaces round
// trip unchanged. Non-2xx responses are decoded into *APIError.
package connection
