package db

import (
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplPebble Implementation = "pebble"
	ImplBadger Implementation = "badger"
	ImplMemory Implementation = "memory"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeaturePersistent  Feature = 1 << iota // Data survives Close/Open
	FeatureSyncWrites                      // Apply(sync=true) waits for the log to be flushed
	FeatureSnapshotIter                    // Iterators observe a point-in-time snapshot
	FeatureCorruptionDetection             // Open reports corruption marked with ErrCorruption
)

func (f Feature) String() string {
	switch f {
	case FeaturePersistent:
		return "Persistent"
	case FeatureSyncWrites:
		return "SyncWrites"
	case FeatureSnapshotIter:
		return "SnapshotIter"
	case FeatureCorruptionDetection:
		return "CorruptionDetection"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int64          `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	Path              string         `json:"path"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Error Markers
// --------------------------------------------------------------------------

// Engines mark the errors they return with one of these sentinels (errors.Mark)
// so that callers can classify failures independently of the engine in use.
var (
	ErrNotFound        = errors.New("db: not found")
	ErrCorruption      = errors.New("db: corruption")
	ErrNotSupported    = errors.New("db: not supported")
	ErrInvalidArgument = errors.New("db: invalid argument")
	ErrIO              = errors.New("db: io error")
	ErrClosed          = errors.New("db: closed")
)

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// KVEngine is an ordered, byte-keyed store with atomic batch writes.
// Keys are compared bytewise. Implementations must be safe for concurrent use,
// although the store built on top of them only ever uses them from one goroutine.
type KVEngine interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Apply commits all operations of the batch atomically. Either every
	// operation becomes visible or none does. If sync is true, Apply only
	// returns once the batch is durable.
	//
	// Engines may limit the size of a batch (badger commits it in one
	// transaction bounded by its memtable size). A batch that is too large to
	// commit atomically fails with an error marked ErrNotSupported.
	Apply(batch *Batch, sync bool) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns a copy of the value stored under key.
	// A missing key is reported as an error marked with ErrNotFound.
	Get(key []byte) (value []byte, err error)

	// NewIter returns an iterator over the whole keyspace in key order.
	// The iterator must be closed by the caller.
	NewIter() (it Iterator, err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine.
	GetInfo() (info DatabaseInfo)

	// Close closes the engine. Every other method fails afterwards.
	Close() (err error)
}

// Iterator walks an engine's keyspace in ascending key order.
// Key and Value are only valid until the next call that moves the iterator;
// callers that keep them must copy.
type Iterator interface {
	// SeekGE moves the iterator to the first key >= key and reports whether it is valid.
	SeekGE(key []byte) bool
	// Next moves the iterator forward and reports whether it is valid.
	Next() bool
	// Valid reports whether the iterator is positioned on an entry.
	Valid() bool
	Key() []byte
	Value() []byte
	// Error returns the first error the iterator encountered, if any.
	// An exhausted iterator is not an error.
	Error() error
	Close() error
}

// --------------------------------------------------------------------------
// Provider Interface
// --------------------------------------------------------------------------

// Provider opens and destroys engines of one implementation at a path.
// It is what the store receives instead of a process-wide engine singleton.
type Provider interface {
	// Name returns the implementation identifier.
	Name() Implementation
	// Open opens the engine at path, creating it if it does not exist.
	Open(path string) (KVEngine, error)
	// Destroy removes every file of the engine at path.
	Destroy(path string) error
}

// --------------------------------------------------------------------------
// Error classification
// --------------------------------------------------------------------------

// IsNotFound reports whether err is marked as ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruption reports whether err is marked as ErrCorruption.
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }
