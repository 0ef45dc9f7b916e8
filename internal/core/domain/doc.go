// Package domain defines the core domain models for PepTrackr.
//
// Domain models are pure values without IO dependencies:
//
//   - Entry: a single key/value pair of the store
//   - Value: a pre-serialized, validated JSON document
//   - Errors: coded domain errors shared by every layer
package domain
