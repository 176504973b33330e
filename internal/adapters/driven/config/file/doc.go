// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.osmium/config.toml)
//
// Keys are addressed in dot notation. A key "ingest.batch_size" is stored as
// batch_size inside an [ingest] table.
package file
