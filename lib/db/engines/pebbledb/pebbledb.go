package pebbledb

import (
	"os"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("engine")

func init() {
	db.Register(NewProvider(nil))
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// DBOptions configures the pebble engine
type DBOptions struct {
	CacheSizeBytes int64 // Block cache size (0 = pebble default)
	MemTableSize   uint64 // Memtable size in bytes (0 = pebble default)
	DisableWAL     bool   // Only for testing!
}

// DefaultOptions returns the default pebble engine options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		CacheSizeBytes: 8 << 20,
		MemTableSize:   4 << 20,
	}
}

// pebbleLogger routes pebble's logging to the engine logger
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debugf("[pebble] "+format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Errorf("[pebble] "+format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Panicf("[pebble] "+format, args...)
}

// --------------------------------------------------------------------------
// Provider
// --------------------------------------------------------------------------

// Provider opens pebble databases
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
	return db.ImplPebble
}

func (p *Provider) Open(path string) (db.KVEngine, error) {
	opts := &pebble.Options{
		ErrorIfNotExists: false,
		DisableWAL:       p.opts.DisableWAL,
		Logger:           pebbleLogger{},
	}
	if p.opts.MemTableSize > 0 {
		opts.MemTableSize = p.opts.MemTableSize
	}
	if p.opts.CacheSizeBytes > 0 {
		cache := pebble.NewCache(p.opts.CacheSizeBytes)
		defer cache.Unref() // the db holds its own reference
		opts.Cache = cache
	}

	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, classify(errors.Wrapf(err, "pebbledb: open %s", path))
	}
	return &pebbleImpl{db: pdb, path: path}, nil
}

func (p *Provider) Destroy(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return errors.Mark(errors.Wrapf(err, "pebbledb: destroy %s", path), db.ErrIO)
	}
	return nil
}

// classify marks a pebble error with the matching db sentinel
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pebble.ErrCorruption):
		return errors.Mark(err, db.ErrCorruption)
	case errors.Is(err, pebble.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return errors.Mark(err, db.ErrNotFound)
	case errors.Is(err, os.ErrInvalid):
		return errors.Mark(err, db.ErrInvalidArgument)
	default:
		return errors.Mark(err, db.ErrIO)
	}
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// pebbleImpl implements db.KVEngine on top of a pebble.DB
type pebbleImpl struct {
	db   *pebble.DB
	path string
}

// DB exposes the underlying pebble handle (for metric collection)
func (e *pebbleImpl) DB() *pebble.DB {
	return e.db
}

func (e *pebbleImpl) Apply(batch *db.Batch, sync bool) error {
	b := e.db.NewBatch()
	defer b.Close()

	for _, op := range batch.Ops() {
		var err error
		switch op.Kind {
		case db.OpPut:
			err = b.Set(op.Key, op.Value, nil)
		case db.OpDelete:
			err = b.Delete(op.Key, nil)
		default:
			err = errors.Mark(errors.Newf("pebbledb: unknown op kind %d", op.Kind), db.ErrInvalidArgument)
		}
		if err != nil {
			return classify(err)
		}
	}

	writeOpts := pebble.NoSync
	if sync {
		writeOpts = pebble.Sync
	}
	if err := b.Commit(writeOpts); err != nil {
		return classify(errors.Wrap(err, "pebbledb: commit"))
	}
	return nil
}

func (e *pebbleImpl) Get(key []byte) ([]byte, error) {
	val, closer, err := e.db.Get(key)
	if err != nil {
		return nil, classify(err)
	}
	defer closer.Close()
	return append([]byte{}, val...), nil
}

func (e *pebbleImpl) NewIter() (db.Iterator, error) {
	it, err := e.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return &pebbleIter{it: it}, nil
}

func (e *pebbleImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeaturePersistent | db.FeatureSyncWrites | db.FeatureSnapshotIter | db.FeatureCorruptionDetection
	return feature&supported == feature
}

func (e *pebbleImpl) GetInfo() db.DatabaseInfo {
	m := e.db.Metrics()
	return db.DatabaseInfo{
		SizeBytes: int64(m.DiskSpaceUsage()),
		DbType:    db.ImplPebble,
		Path:      e.path,
		SupportedFeatures: []db.Feature{
			db.FeaturePersistent,
			db.FeatureSyncWrites,
			db.FeatureSnapshotIter,
			db.FeatureCorruptionDetection,
		},
		Metadata: map[string]interface{}{
			"memtable_bytes": m.MemTable.Size,
			"wal_files":      m.WAL.Files,
			"compactions":    m.Compact.Count,
		},
	}
}

func (e *pebbleImpl) Close() error {
	if err := e.db.Close(); err != nil {
		return classify(err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Iterator
// --------------------------------------------------------------------------

type pebbleIter struct {
	it *pebble.Iterator
}

func (i *pebbleIter) SeekGE(key []byte) bool { return i.it.SeekGE(key) }
func (i *pebbleIter) Next() bool             { return i.it.Next() }
func (i *pebbleIter) Valid() bool            { return i.it.Valid() }
func (i *pebbleIter) Key() []byte            { return i.it.Key() }
func (i *pebbleIter) Value() []byte          { return i.it.Value() }
func (i *pebbleIter) Error() error           { return classify(i.it.Error()) }

func (i *pebbleIter) Close() error {
	return classify(i.it.Close())
}
