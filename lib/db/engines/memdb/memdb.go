package memdb

import (
	"bytes"
	"sync"

	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/ValentinKolb/syncstore/lib/db/util"
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	btreeDegree = 32 // Degree of the backing b-tree
)

// --------------------------------------------------------------------------
// Core memory engine structure
// --------------------------------------------------------------------------

type entry struct {
	key   []byte
	value []byte
}

func lessEntry(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// dataset is the state behind one path. It outlives the engines opened on it,
// so data survives a Close/Open cycle within the same Provider.
type dataset struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[entry]
	sizes   *util.SizeHistogram
	corrupt bool  // next Open fails with a corruption error
	openErr error // next Open fails with this error
	applyErr error // every Apply fails with this error
	getErr  error // every Get fails with this error
	iterErr error // every iterator reports this error after its first entry
	opened  bool
}

func newDataset() *dataset {
	return &dataset{
		tree:  btree.NewG[entry](btreeDegree, lessEntry),
		sizes: util.NewSizeHistogram(),
	}
}

// memImpl implements db.KVEngine over a dataset
type memImpl struct {
	path   string
	data   *dataset
	closed bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVEngine)
// --------------------------------------------------------------------------

func (m *memImpl) Apply(batch *db.Batch, _ bool) error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()

	if m.closed {
		return db.ErrClosed
	}
	if m.data.applyErr != nil {
		return errors.Mark(errors.Wrap(m.data.applyErr, "memdb: apply"), db.ErrIO)
	}

	// copy-on-write: build the new tree first so a failure leaves nothing behind
	next := m.data.tree.Clone()
	for _, op := range batch.Ops() {
		switch op.Kind {
		case db.OpPut:
			next.ReplaceOrInsert(entry{key: op.Key, value: op.Value})
			m.data.sizes.AddSample(len(op.Key) + len(op.Value))
		case db.OpDelete:
			next.Delete(entry{key: op.Key})
		default:
			return errors.Mark(errors.Newf("memdb: unknown op kind %d", op.Kind), db.ErrInvalidArgument)
		}
	}
	m.data.tree = next
	return nil
}

func (m *memImpl) Get(key []byte) ([]byte, error) {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	if m.closed {
		return nil, db.ErrClosed
	}
	if m.data.getErr != nil {
		return nil, errors.Mark(errors.Wrap(m.data.getErr, "memdb: get"), db.ErrIO)
	}
	e, ok := m.data.tree.Get(entry{key: key})
	if !ok {
		return nil, errors.Mark(errors.Newf("memdb: key %q", key), db.ErrNotFound)
	}
	return append([]byte{}, e.value...), nil
}

func (m *memImpl) NewIter() (db.Iterator, error) {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	if m.closed {
		return nil, db.ErrClosed
	}
	return &memIter{
		snapshot: m.data.tree.Clone(),
		failWith: m.data.iterErr,
		pos:      -1,
	}, nil
}

func (m *memImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSnapshotIter | db.FeatureCorruptionDetection
	return feature&supported == feature
}

func (m *memImpl) GetInfo() db.DatabaseInfo {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	var size int64
	m.data.tree.Ascend(func(e entry) bool {
		size += int64(len(e.key) + len(e.value))
		return true
	})

	return db.DatabaseInfo{
		SizeBytes: size,
		DbType:    db.ImplMemory,
		Path:      m.path,
		SupportedFeatures: []db.Feature{
			db.FeatureSnapshotIter,
			db.FeatureCorruptionDetection,
		},
		Metadata: map[string]interface{}{
			"keys":                m.data.tree.Len(),
			"written_values":      m.data.sizes.GetCount(),
			"average_write_bytes": m.data.sizes.AverageSize(),
			"median_write_bytes":  m.data.sizes.MedianEstimate(),
			"p99_write_bytes":     m.data.sizes.GetPercentileEstimate(99),
		},
	}
}

func (m *memImpl) Close() error {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()

	if m.closed {
		return db.ErrClosed
	}
	m.closed = true
	m.data.opened = false
	return nil
}

// --------------------------------------------------------------------------
// Iterator
// --------------------------------------------------------------------------

// memIter iterates a cloned tree. It materializes the entries >= the seek key,
// which is fine for the sizes this engine is meant for.
type memIter struct {
	snapshot *btree.BTreeG[entry]
	entries  []entry
	pos      int
	failWith error
	err      error
}

func (it *memIter) SeekGE(key []byte) bool {
	it.entries = it.entries[:0]
	it.snapshot.AscendGreaterOrEqual(entry{key: key}, func(e entry) bool {
		it.entries = append(it.entries, e)
		return true
	})
	it.pos = 0
	return it.Valid()
}

func (it *memIter) Next() bool {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return false
	}
	if it.failWith != nil {
		it.err = errors.Mark(errors.Wrap(it.failWith, "memdb: iterate"), db.ErrIO)
		it.pos = len(it.entries)
		return false
	}
	it.pos++
	return it.Valid()
}

func (it *memIter) Valid() bool {
	return it.err == nil && it.pos >= 0 && it.pos < len(it.entries)
}

func (it *memIter) Key() []byte   { return it.entries[it.pos].key }
func (it *memIter) Value() []byte { return it.entries[it.pos].value }
func (it *memIter) Error() error  { return it.err }

func (it *memIter) Close() error {
	it.entries = nil
	it.snapshot = nil
	return it.err
}
