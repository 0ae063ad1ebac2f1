// Package cmd implements the command-line interface of syncstore. Every command
// opens the configured store directly, performs its operation and closes it again.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for record operations (list, get, put, del, drop) and a benchmark
//   - tabs: Commands for the tab node bookkeeping (list, open, move, close, compact)
//   - schema: Commands to inspect and migrate the schema version of a store
//   - stats: Prints engine info and the metrics collected while opening the store
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the prefix SYNCSTORE_
// (e.g. SYNCSTORE_DATA_DIR), either directly or through a .env or .env.local file.
//
// See syncstore -help for a list of all commands.
package cmd
