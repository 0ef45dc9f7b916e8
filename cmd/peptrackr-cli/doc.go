// Package main provides the entry point for peptrackr-cli.
//
// Usage:
//
//	peptrackr-cli [--server addr] [--prefix /api/v1] [-o table|json|yaml] COMMAND
//
// Defaults for --server, --prefix and -o come from ~/.peptrackr/cli.yaml
// (see "peptrackr-cli config").
package main
