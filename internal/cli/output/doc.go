// Package output renders peptrackr-cli results as a table, JSON or YAML.
//
// Store values are JSON documents and pass through every formatter
// unchanged in meaning: the table shows them compacted, the JSON formatter
// indents them, and the YAML formatter converts them to native YAML.
package output
