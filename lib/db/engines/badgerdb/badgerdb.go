package badgerdb

import (
	"os"
	"strings"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/y"
	"github.com/lni/dragonboat/v4/logger"
)

// log satisfies badger.Logger, badger's output goes to the engine logger
var log = logger.GetLogger("engine")

func init() {
	db.Register(NewProvider(nil))
}

// DBOptions configures the badger engine
type DBOptions struct {
	InMemory     bool  // Keep everything in memory, the path is ignored
	SyncWrites   bool  // Sync every commit, regardless of the sync flag of Apply
	MemTableSize int64 // Memtable size in bytes (0 = badger default). A batch may use 15% of it
}

// DefaultOptions returns the default badger engine options
func DefaultOptions() *DBOptions {
	return &DBOptions{}
}

// --------------------------------------------------------------------------
// Provider
// --------------------------------------------------------------------------

// Provider opens badger databases
type Provider struct {
	opts *DBOptions
}

// NewProvider returns a provider using opts (nil = DefaultOptions)
func NewProvider(opts *DBOptions) *Provider {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Provider{opts: opts}
}

func (p *Provider) Name() db.Implementation {
	return db.ImplBadger
}

func (p *Provider) Open(path string) (db.KVEngine, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(log).
		WithSyncWrites(p.opts.SyncWrites)
	if p.opts.MemTableSize > 0 {
		opts = opts.WithMemTableSize(p.opts.MemTableSize)
	}
	if p.opts.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, classify(errors.Wrapf(err, "badgerdb: open %s", path))
	}
	return &badgerImpl{db: bdb, path: path, inMemory: p.opts.InMemory}, nil
}

func (p *Provider) Destroy(path string) error {
	if p.opts.InMemory {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.Mark(errors.Wrapf(err, "badgerdb: destroy %s", path), db.ErrIO)
	}
	return nil
}

// corruptionMessages identify badger's unexported corruption errors
// (bad manifest magic, manifest and table checksum mismatches)
var corruptionMessages = []string{
	"manifest has bad magic",
	"checksum mismatch",
}

// classify marks a badger error with the matching db sentinel
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, y.ErrChecksumMismatch), isCorruption(err):
		return errors.Mark(err, db.ErrCorruption)
	case errors.Is(err, badger.ErrTxnTooBig):
		return errors.Mark(err, db.ErrNotSupported)
	case errors.Is(err, badger.ErrKeyNotFound), errors.Is(err, os.ErrNotExist):
		return errors.Mark(err, db.ErrNotFound)
	case errors.Is(err, badger.ErrEmptyKey), errors.Is(err, badger.ErrInvalidRequest):
		return errors.Mark(err, db.ErrInvalidArgument)
	default:
		return errors.Mark(err, db.ErrIO)
	}
}

func isCorruption(err error) bool {
	msg := err.Error()
	for _, m := range corruptionMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// badgerImpl implements db.KVEngine on top of a badger.DB
type badgerImpl struct {
	db       *badger.DB
	path     string
	inMemory bool
}

func (e *badgerImpl) Apply(batch *db.Batch, sync bool) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		for _, op := range batch.Ops() {
			switch op.Kind {
			case db.OpPut:
				if err := txn.Set(op.Key, op.Value); err != nil {
					return err
				}
			case db.OpDelete:
				if err := txn.Delete(op.Key); err != nil {
					return err
				}
			default:
				return errors.Mark(errors.Newf("badgerdb: unknown op kind %d", op.Kind), db.ErrInvalidArgument)
			}
		}
		return nil
	})
	if err != nil {
		return classify(errors.Wrap(err, "badgerdb: apply"))
	}
	if sync && !e.inMemory {
		if err := e.db.Sync(); err != nil {
			return classify(errors.Wrap(err, "badgerdb: sync"))
		}
	}
	return nil
}

func (e *badgerImpl) Get(key []byte) ([]byte, error) {
	var result []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (e *badgerImpl) NewIter() (db.Iterator, error) {
	txn := e.db.NewTransaction(false)
	return &badgerIter{
		txn: txn,
		it:  txn.NewIterator(badger.DefaultIteratorOptions),
	}, nil
}

func (e *badgerImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSyncWrites | db.FeatureSnapshotIter | db.FeatureCorruptionDetection
	if !e.inMemory {
		supported |= db.FeaturePersistent
	}
	return feature&supported == feature
}

func (e *badgerImpl) GetInfo() db.DatabaseInfo {
	lsm, vlog := e.db.Size()

	features := []db.Feature{db.FeatureSyncWrites, db.FeatureSnapshotIter, db.FeatureCorruptionDetection}
	if !e.inMemory {
		features = append(features, db.FeaturePersistent)
	}

	return db.DatabaseInfo{
		SizeBytes:         lsm + vlog,
		DbType:            db.ImplBadger,
		Path:              e.path,
		SupportedFeatures: features,
		Metadata: map[string]interface{}{
			"lsm_bytes":  lsm,
			"vlog_bytes": vlog,
			"in_memory":  e.inMemory,
		},
	}
}

func (e *badgerImpl) Close() error {
	return classify(e.db.Close())
}

// --------------------------------------------------------------------------
// Iterator
// --------------------------------------------------------------------------

// badgerIter wraps a read-only transaction and its iterator.
// The value of the current item is copied lazily on the first Value call.
type badgerIter struct {
	txn   *badger.Txn
	it    *badger.Iterator
	value []byte
	err   error
}

func (i *badgerIter) SeekGE(key []byte) bool {
	i.value = nil
	i.it.Seek(key)
	return i.Valid()
}

func (i *badgerIter) Next() bool {
	if !i.it.Valid() {
		return false
	}
	i.value = nil
	i.it.Next()
	return i.Valid()
}

func (i *badgerIter) Valid() bool {
	return i.err == nil && i.it.Valid()
}

func (i *badgerIter) Key() []byte {
	return i.it.Item().Key()
}

func (i *badgerIter) Value() []byte {
	if i.value == nil {
		v, err := i.it.Item().ValueCopy(nil)
		if err != nil {
			i.err = classify(errors.Wrap(err, "badgerdb: read value"))
			return nil
		}
		i.value = v
	}
	return i.value
}

func (i *badgerIter) Error() error {
	return i.err
}

func (i *badgerIter) Close() error {
	i.it.Close()
	i.txn.Discard()
	return i.err
}
