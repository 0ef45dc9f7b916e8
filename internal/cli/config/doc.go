// Package config holds peptrackr-cli's persisted defaults
// (~/.peptrackr/cli.yaml): the server address, API prefix and output
// format used when the matching flag is not given.
package config
