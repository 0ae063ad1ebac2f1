// Package store provides a durable, prefix-namespaced record store with schema
// versioning and corruption recovery, built on top of a db.KVEngine.
//
// The package focuses on:
//   - A record level interface (IStore) where each logical record type owns a key prefix
//   - A Backend that owns one engine, recovers from corruption and migrates the schema
//   - Unified error handling with typed return codes
//
// Key Components:
//
//   - Backend: Opens the engine through a db.Provider. If the engine reports corruption
//     on open, the data is destroyed and a fresh engine opened, exactly once. After opening,
//     the reserved record "_schema_descriptor" is read and the store migrated step by step
//     to LatestSchemaVersion. The result of every Init call is kept as an InitOutcome and
//     counted in the backend's Metrics.
//
//   - WriteBatch: An ordered list of puts and deletes that is applied atomically. Keys are
//     fully qualified; PutWithPrefix and DeleteWithPrefix concatenate prefix and id.
//
//   - Error System: Every failure is reported as a *Error carrying a RetCode
//     (RetCOpenFailure with an OpenFailure kind, RetCSchemaDescriptorInvalid, RetCSchemaTooNew,
//     RetCVersionTooHigh, RetCMigrationFailed with the failing step, RetCIOError,
//     RetCInvalidOperation). The engine error is available through errors.Unwrap.
//
//   - Metrics: Counters (VictoriaMetrics) for init outcomes, corruption recoveries, records
//     read and written and failures per operation, plus timers (go-metrics) per operation.
//
// Prefix scans are purely bytewise: ReadAllRecordsWithPrefix("cat/1") returns "cat/1" and
// "cat/10", but never "cat/" + anything else. The descriptor record is invisible to all
// record operations and cannot be written through a WriteBatch.
//
// A Backend is meant to be used from a single goroutine. Init, reads and writes block
// until the engine has finished.
//
// Example:
//
//	b := store.NewBackend(pebbledb.NewProvider(nil), &store.Options{SyncWrites: true})
//	if err := b.Init("/var/lib/syncstore"); err != nil {
//		return err
//	}
//	defer b.Close()
//
//	err := b.WriteModifications(store.NewWriteBatch().PutWithPrefix("t/", "1", []byte("X")))
//	records, err := b.ReadAllRecordsWithPrefix("t/") // [{ID: "1", Value: "X"}]
package store
