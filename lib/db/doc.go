// Package db provides a standardized interface for the ordered key-value engines
// the store is built on. It allows the store to run on different engines without
// knowing their implementation details.
//
// The package focuses on:
//   - A small engine interface: atomic batch writes, point reads and ordered iteration
//   - Providers that open and destroy engines at a path
//   - Engine independent error classification
//   - Feature discovery and metadata reporting
//
// Key Components:
//
//   - KVEngine Interface: The core interface that all engine implementations must satisfy.
//     Apply commits a Batch of puts and deletes atomically, optionally waiting until it is
//     durable. Get reads a single key, NewIter returns an Iterator over the keyspace in
//     bytewise key order.
//
//   - Provider Interface: Opens the engine at a path (creating it if needed) and destroys
//     all of its files. Providers register themselves in a process-wide registry (see
//     Register and GetProvider) when their package is imported.
//
//   - Error Markers: Engines mark their errors with ErrNotFound, ErrCorruption,
//     ErrNotSupported, ErrInvalidArgument, ErrIO or ErrClosed (cockroachdb/errors.Mark),
//     so that callers can classify a failure with errors.Is regardless of the engine.
//
//   - Feature Flags: The Feature type defines capability flags that engines advertise
//     through SupportsFeature (persistence, synchronous writes, snapshot iterators,
//     corruption detection).
//
//   - Database Information: DatabaseInfo reports the engine type, path, estimated size
//     and engine specific metadata.
//
// Related Packages:
//
// The engines subpackages implement the interface on top of pebble (engines/pebbledb),
// badger (engines/badgerdb) and an in-memory btree (engines/memdb). The memory engine
// keeps its data per path across Close and Open within one provider, and supports fault
// injection for tests (corruption, failing opens, writes, iterations and destroys).
//
// The testing package provides a shared conformance suite (RunEngineTests) and
// benchmarks (RunEngineBenchmarks) every engine runs against.
package db
