// Package repl provides the interactive shell for peptrackr-cli.
//
//   - repl.go: read loop, line splitting and dispatch
//   - completer.go: command-path completion and "help"
//   - history.go: command history persisted under ~/.peptrackr
//
// Each line is split into words (single and double quotes group, so JSON
// values can be typed inline) and handed to an Executor, which in practice
// re-enters the CLI command tree.
package repl
