// Package testing provides standardised tests and benchmarks for
// engine implementations that satisfy the db.KVEngine interface.
//
// The package contains:
//   - testing: A conformance suite for the KVEngine and Provider contracts
//     (batch atomicity and ordering, bytewise iteration order, snapshots, reopen, destroy)
//   - benchmark: Performance tests for the operations the store relies on
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() db.Provider {
//		return NewMyProvider()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunEngineTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunEngineBenchmarks(b, "MyEngine", factory)
package testing
