// Package service provides domain services for PepTrackr.
//
// Domain services contain the business logic and define interfaces for their
// storage dependencies, so backends are injected rather than global:
//
//   - StoreService: get / get-many / put / delete over string keys
//   - Backup: export and import of every store entry
//
// Services hold no state between calls and are safe for concurrent use.
package service
