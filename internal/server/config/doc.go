// Package config provides server configuration for PepTrackr.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default configuration values
//   - verify.go: validation (addresses, engine, limits)
//   - sanitize.go: log sanitization (hide credentials)
//   - storage.go: conversion to the storage package's Config
//
// Configuration is loaded via internal/infra/confloader from defaults, a
// YAML file and the environment.
package config
