// Package command defines the peptrackr-cli command tree on urfave/cli/v2.
//
//   - store get|list|put|delete: single entries and bulk reads
//   - backup export|import: whole-store documents
//   - system health|ready: server probes
//   - config view|set|path: persisted CLI defaults
//   - version: build information
//   - shell: interactive loop over the commands above
//
// Commands write results to App.Writer through the output package, so the
// global -o flag applies uniformly.
package command
