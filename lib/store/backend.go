package store

import (
	"bytes"
	"fmt"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

var _ IStore = (*Backend)(nil)

// Options configures a Backend
type Options struct {
	// SyncWrites makes WriteModifications and DeleteDataAndMetadataForPrefix wait
	// for the engine log to be flushed. Schema writes are always synchronous.
	SyncWrites bool
	// Metrics receives the counters and timers of the backend (nil = private collection)
	Metrics *Metrics
}

// Backend is a durable, prefix-namespaced record store with a schema version.
// It owns exactly one engine between a successful Init and Close.
//
// A Backend is not safe for concurrent use; callers serialize access, typically
// by confining the backend to a single goroutine.
type Backend struct {
	provider db.Provider
	opts     Options
	metrics  *Metrics

	engine   db.KVEngine
	path     string
	outcome  InitOutcome
	recovery Recovery
}

// NewBackend creates an uninitialized backend that opens its engine with provider.
func NewBackend(provider db.Provider, opts *Options) *Backend {
	if opts == nil {
		opts = &Options{}
	}
	m := opts.Metrics
	if m == nil {
		m = NewMetrics()
	}
	return &Backend{
		provider: provider,
		opts:     *opts,
		metrics:  m,
		outcome:  InitNotAttempted,
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Init opens the engine at path and brings its schema to LatestSchemaVersion.
//
// Corrupted data is destroyed and a fresh engine is opened once. A stored schema
// that is newer than LatestSchemaVersion or cannot be parsed fails the call, as
// does a failing migration. On failure the backend stays uninitialized and Init
// may be called again. Calling Init on an initialized backend panics.
func (b *Backend) Init(path string) error {
	if b.engine != nil {
		panic(fmt.Sprintf("store: Init(%q) called on a backend that is already initialized with %q", path, b.path))
	}
	defer b.metrics.timed("init")()

	b.recovery = RecoveryNone
	engine, err := b.provider.Open(path)
	if errors.Is(err, db.ErrCorruption) {
		log.Warningf("engine at %s is corrupted, destroying it: %v", path, err)
		engine, err = b.recoverCorruption(path)
	}
	if err != nil {
		outcome, kind := classifyOpenError(err)
		b.finishInit(outcome)
		log.Errorf("failed to open engine at %s: %v", path, err)
		return &Error{Code: RetCOpenFailure, Msg: fmt.Sprintf("failed to open %s", path), Kind: kind, Cause: err}
	}

	b.engine = engine
	b.path = path

	if err := b.initSchema(); err != nil {
		switch CodeOf(err) {
		case RetCMigrationFailed, RetCVersionTooHigh:
			b.finishInit(InitMigrationFailure)
		case RetCIOError:
			b.finishInit(InitIOError)
		default:
			b.finishInit(InitSchemaDescriptorIssue)
		}
		log.Errorf("schema initialization of %s failed: %v", path, err)
		b.closeEngine()
		return err
	}

	if b.recovery == RecoverySucceeded {
		b.finishInit(InitRecoveredAfterCorruption)
	} else {
		b.finishInit(InitSuccess)
	}
	log.Infof("store at %s initialized (outcome %s, engine %s)", path, b.outcome, b.provider.Name())
	return nil
}

// recoverCorruption destroys the data at path and opens a fresh engine
func (b *Backend) recoverCorruption(path string) (db.KVEngine, error) {
	if err := b.provider.Destroy(path); err != nil {
		b.setRecovery(RecoveryFailed)
		return nil, errors.Wrap(err, "destroy corrupted engine")
	}
	engine, err := b.provider.Open(path)
	if err != nil {
		b.setRecovery(RecoveryFailed)
		return nil, errors.Wrap(err, "reopen after destroy")
	}
	b.setRecovery(RecoverySucceeded)
	return engine, nil
}

func (b *Backend) setRecovery(r Recovery) {
	b.recovery = r
	b.metrics.recordRecovery(r)
}

func (b *Backend) finishInit(outcome InitOutcome) {
	b.outcome = outcome
	b.metrics.recordInit(outcome)
}

// initSchema reads the stored schema version and migrates it to LatestSchemaVersion
func (b *Backend) initSchema() error {
	current, err := b.storeVersion()
	if err != nil {
		return err
	}
	if current > LatestSchemaVersion {
		return NewError(RetCSchemaTooNew,
			fmt.Sprintf("stored schema version %d is newer than supported version %d", current, LatestSchemaVersion))
	}
	if current < LatestSchemaVersion {
		log.Infof("migrating schema of %s from version %d to %d", b.path, current, LatestSchemaVersion)
		return b.Migrate(current, LatestSchemaVersion)
	}
	return nil
}

// storeVersion returns the version of the stored descriptor, 0 if there is none
func (b *Backend) storeVersion() (int64, error) {
	raw, err := b.engine.Get([]byte(SchemaDescriptorKey))
	if db.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapError(RetCIOError, err, "failed to read the schema descriptor")
	}
	version, err := decodeSchemaDescriptor(raw)
	if err != nil {
		return 0, wrapError(RetCSchemaDescriptorInvalid, err, "failed to parse the schema descriptor")
	}
	return version, nil
}

// Close releases the engine. The backend can be initialized again afterward.
// Closing an uninitialized backend is a no-op.
func (b *Backend) Close() error {
	if b.engine == nil {
		return nil
	}
	err := b.engine.Close()
	b.engine = nil
	if err != nil {
		return wrapError(RetCIOError, err, "failed to close the engine")
	}
	return nil
}

func (b *Backend) closeEngine() {
	if err := b.engine.Close(); err != nil {
		log.Warningf("failed to close engine at %s: %v", b.path, err)
	}
	b.engine = nil
}

func (b *Backend) mustBeInitialized(op string) {
	if b.engine == nil {
		panic(fmt.Sprintf("store: %s called on an uninitialized backend", op))
	}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Outcome returns the outcome of the last Init call (InitNotAttempted before the first)
func (b *Backend) Outcome() InitOutcome {
	return b.outcome
}

// Recovery returns whether the last Init call had to recover from corruption
func (b *Backend) Recovery() Recovery {
	return b.recovery
}

// Initialized reports whether the backend holds an open engine
func (b *Backend) Initialized() bool {
	return b.engine != nil
}

// Engine returns the engine of an initialized backend, nil otherwise
func (b *Backend) Engine() db.KVEngine {
	return b.engine
}

// Metrics returns the metrics collection the backend reports to
func (b *Backend) Metrics() *Metrics {
	return b.metrics
}

// Info returns the engine info of an initialized backend
func (b *Backend) Info() db.DatabaseInfo {
	b.mustBeInitialized("Info")
	return b.engine.GetInfo()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (b *Backend) ReadAllRecordsWithPrefix(prefix string) ([]Record, error) {
	b.mustBeInitialized("ReadAllRecordsWithPrefix")
	defer b.metrics.timed("read_all")()

	records := make([]Record, 0)
	err := b.scanPrefix(prefix, func(key, value []byte) {
		records = append(records, Record{
			ID:    string(key[len(prefix):]),
			Value: bytes.Clone(value),
		})
	})
	if err != nil {
		b.metrics.recordFailure("read_all")
		return nil, wrapError(RetCIOError, err, fmt.Sprintf("failed to read records with prefix %q", prefix))
	}
	b.metrics.recordRead(len(records))
	return records, nil
}

func (b *Backend) ReadRecordsWithPrefix(prefix string, ids []string) ([]Record, []string, error) {
	b.mustBeInitialized("ReadRecordsWithPrefix")
	defer b.metrics.timed("read")()

	found := make([]Record, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		key := prefix + id
		if key == SchemaDescriptorKey {
			missing = append(missing, id)
			continue
		}
		value, err := b.engine.Get([]byte(key))
		switch {
		case err == nil:
			found = append(found, Record{ID: id, Value: value})
		case db.IsNotFound(err):
			missing = append(missing, id)
		default:
			b.metrics.recordFailure("read")
			return nil, nil, wrapError(RetCIOError, err, fmt.Sprintf("failed to read record %q", key))
		}
	}
	b.metrics.recordRead(len(found))
	return found, missing, nil
}

func (b *Backend) WriteModifications(batch *WriteBatch) error {
	b.mustBeInitialized("WriteModifications")
	defer b.metrics.timed("write")()

	if batch.touches(SchemaDescriptorKey) {
		return NewError(RetCInvalidOperation, fmt.Sprintf("the key %q is reserved", SchemaDescriptorKey))
	}
	if err := b.engine.Apply(batch.batch, b.opts.SyncWrites); err != nil {
		b.metrics.recordFailure("write")
		return wrapError(RetCIOError, err, "failed to apply write batch")
	}
	b.metrics.recordWrite(batch.Len())
	return nil
}

func (b *Backend) DeleteDataAndMetadataForPrefix(prefix string) error {
	b.mustBeInitialized("DeleteDataAndMetadataForPrefix")
	defer b.metrics.timed("delete_prefix")()

	batch := db.NewBatch()
	err := b.scanPrefix(prefix, func(key, _ []byte) {
		batch.Delete(bytes.Clone(key))
	})
	if err != nil {
		b.metrics.recordFailure("delete_prefix")
		return wrapError(RetCIOError, err, fmt.Sprintf("failed to scan records with prefix %q", prefix))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := b.engine.Apply(batch, b.opts.SyncWrites); err != nil {
		b.metrics.recordFailure("delete_prefix")
		return wrapError(RetCIOError, err, fmt.Sprintf("failed to delete records with prefix %q", prefix))
	}
	b.metrics.recordWrite(batch.Len())
	log.Debugf("deleted %d records with prefix %q", batch.Len(), prefix)
	return nil
}

// scanPrefix calls fn for every key starting with prefix, in key order.
// The reserved descriptor key is skipped. key and value are only valid during fn.
func (b *Backend) scanPrefix(prefix string, fn func(key, value []byte)) (err error) {
	it, err := b.engine.NewIter()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	p := []byte(prefix)
	for valid := it.SeekGE(p); valid; valid = it.Next() {
		key := it.Key()
		if !bytes.HasPrefix(key, p) {
			break
		}
		if string(key) == SchemaDescriptorKey {
			continue
		}
		fn(key, it.Value())
	}
	return it.Error()
}

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

// Migrate runs the migration steps from current to desired. Each step commits its
// changes together with the new descriptor in one synchronous write.
// Migrating to the current version is a no-op.
func (b *Backend) Migrate(current, desired int64) error {
	b.mustBeInitialized("Migrate")
	defer b.metrics.timed("migrate")()

	if current > desired {
		return NewError(RetCVersionTooHigh,
			fmt.Sprintf("cannot migrate from version %d down to version %d", current, desired))
	}
	for current < desired {
		step, ok := migrations[current]
		if !ok {
			return &Error{Code: RetCMigrationFailed, Msg: fmt.Sprintf("no migration from version %d", current), Step: current}
		}
		batch := NewWriteBatch()
		if err := step(b, batch); err != nil {
			return &Error{Code: RetCMigrationFailed, Msg: "migration step failed", Step: current, Cause: err}
		}
		batch.Put(SchemaDescriptorKey, encodeSchemaDescriptor(current+1))
		if err := b.engine.Apply(batch.batch, true); err != nil {
			b.metrics.recordFailure("migrate")
			return &Error{Code: RetCMigrationFailed, Msg: "failed to write the schema descriptor", Step: current, Cause: err}
		}
		log.Infof("migrated schema of %s from version %d to %d", b.path, current, current+1)
		current++
	}
	return nil
}

// MigrateForTest runs Migrate on an initialized backend
func (b *Backend) MigrateForTest(current, desired int64) error {
	return b.Migrate(current, desired)
}

// StoreVersion returns the stored schema version, 0 if there is none
func (b *Backend) StoreVersion() (int64, error) {
	b.mustBeInitialized("StoreVersion")
	return b.storeVersion()
}

// GetStoreVersionForTest returns the stored schema version, 0 if there is none
func (b *Backend) GetStoreVersionForTest() (int64, error) {
	return b.StoreVersion()
}
