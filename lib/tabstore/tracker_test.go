package tabstore

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/syncstore/lib/codec"
	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/ValentinKolb/syncstore/lib/db/engines/memdb"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/ValentinKolb/syncstore/lib/tabpool"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "tabs"

type fixture struct {
	provider *memdb.Provider
	backend  *store.Backend
	tracker  *Tracker
}

func newFixture(t *testing.T, opts *Options) *fixture {
	t.Helper()
	provider := memdb.NewProvider()
	backend := store.NewBackend(provider, nil)
	require.NoError(t, backend.Init(testPath))
	t.Cleanup(func() { _ = backend.Close() })

	tracker := NewTracker(backend, opts)
	require.NoError(t, tracker.Load())
	return &fixture{provider: provider, backend: backend, tracker: tracker}
}

// reload returns a new tracker loaded from the same store
func (f *fixture) reload(t *testing.T, opts *Options) *Tracker {
	t.Helper()
	tracker := NewTracker(f.backend, opts)
	require.NoError(t, tracker.Load())
	return tracker
}

// persisted returns the decoded records of the store, in key order
func (f *fixture) persisted(t *testing.T) []codec.TabNodeRecord {
	t.Helper()
	records, err := f.backend.ReadAllRecordsWithPrefix(f.tracker.Prefix())
	require.NoError(t, err)

	out := make([]codec.TabNodeRecord, 0, len(records))
	for _, r := range records {
		rec, err := f.tracker.decode(r)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func (f *fixture) failWrites() {
	f.provider.FailApply(testPath, errors.Mark(errors.New("disk full"), db.ErrIO))
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestOpenTabPersists(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		node, err := f.tracker.OpenTab(tabpool.TabID(100 + i))
		require.NoError(t, err)
		assert.Equal(t, tabpool.NodeID(i), node)
	}

	// opening again keeps the node
	node, err := f.tracker.OpenTab(101)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(1), node)

	assert.Equal(t, []codec.TabNodeRecord{
		{NodeID: 0, TabID: 100},
		{NodeID: 1, TabID: 101},
		{NodeID: 2, TabID: 102},
	}, f.persisted(t))
}

func TestCloseTabAndReuse(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 3; i++ {
		_, err := f.tracker.OpenTab(tabpool.TabID(i))
		require.NoError(t, err)
	}

	require.NoError(t, f.tracker.CloseTab(1))
	require.NoError(t, f.tracker.CloseTab(1))
	require.NoError(t, f.tracker.CloseTab(99))

	assert.Equal(t, []codec.TabNodeRecord{
		{NodeID: 0, TabID: 0},
		{NodeID: 1, TabID: -1},
		{NodeID: 2, TabID: 2},
	}, f.persisted(t))

	node, err := f.tracker.OpenTab(7)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(1), node)
}

func TestMoveTab(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.tracker.OpenTab(1) // node 0
	require.NoError(t, err)
	_, err = f.tracker.OpenTab(2) // node 1
	require.NoError(t, err)

	// tab 1 takes over node 1 from tab 2
	require.NoError(t, f.tracker.MoveTab(1, 1))
	assert.Equal(t, []codec.TabNodeRecord{
		{NodeID: 0, TabID: -1},
		{NodeID: 1, TabID: 1},
	}, f.persisted(t))
	_, ok := f.tracker.Pool().GetTabNodeIdFromTabId(2)
	assert.False(t, ok)

	// a node far above the watermark leaves holes that are reused first
	require.NoError(t, f.tracker.MoveTab(5, 2))
	node, err := f.tracker.OpenTab(3)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(0), node)
	node, err = f.tracker.OpenTab(4)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(2), node)

	// moving to the current node is a no-op
	require.NoError(t, f.tracker.MoveTab(5, 2))
}

func TestLoadRestoresPool(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 5; i++ {
		_, err := f.tracker.OpenTab(tabpool.TabID(10 + i))
		require.NoError(t, err)
	}
	require.NoError(t, f.tracker.CloseTab(11))
	require.NoError(t, f.tracker.MoveTab(8, 13))

	loaded := f.reload(t, nil)
	assert.Equal(t, f.tracker.Nodes(), loaded.Nodes())
	assert.Equal(t, f.tracker.Pool().Stats(), loaded.Pool().Stats())

	// nodes 1 and 3 are free, 5, 6 and 7 are holes
	node, err := loaded.OpenTab(20)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(1), node)
	node, err = loaded.OpenTab(21)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(3), node)
	node, err = loaded.OpenTab(22)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(5), node)
}

func TestLoadResolvesDuplicateTabs(t *testing.T) {
	f := newFixture(t, nil)
	serializer := codec.NewBinarySerializer()

	batch := store.NewWriteBatch()
	for node, tab := range map[int64]int64{0: 7, 1: 7, 2: 8} {
		value, err := serializer.Serialize(codec.TabNodeRecord{NodeID: node, TabID: tab})
		require.NoError(t, err)
		batch.PutWithPrefix(DefaultPrefix, fmt.Sprint(node), value)
	}
	require.NoError(t, f.backend.WriteModifications(batch))

	loaded := f.reload(t, nil)
	node, ok := loaded.Pool().GetTabNodeIdFromTabId(7)
	require.True(t, ok)
	assert.Equal(t, tabpool.NodeID(1), node)

	assert.Equal(t, []codec.TabNodeRecord{
		{NodeID: 0, TabID: -1},
		{NodeID: 1, TabID: 7},
		{NodeID: 2, TabID: 8},
	}, f.persisted(t))
}

func TestLoadRejectsBadRecords(t *testing.T) {
	t.Run("Undecodable", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.backend.WriteModifications(
			store.NewWriteBatch().PutWithPrefix(DefaultPrefix, "0", []byte{0xff})))
		assert.Error(t, NewTracker(f.backend, nil).Load())
	})

	t.Run("KeyMismatch", func(t *testing.T) {
		f := newFixture(t, nil)
		value, err := codec.NewBinarySerializer().Serialize(codec.TabNodeRecord{NodeID: 4, TabID: 1})
		require.NoError(t, err)
		require.NoError(t, f.backend.WriteModifications(
			store.NewWriteBatch().PutWithPrefix(DefaultPrefix, "3", value)))
		assert.Error(t, NewTracker(f.backend, nil).Load())
	})
}

func TestCompact(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i <= tabpool.HighWatermark; i++ {
		_, err := f.tracker.OpenTab(tabpool.TabID(i))
		require.NoError(t, err)
	}

	for i := 0; i < tabpool.HighWatermark; i++ {
		require.NoError(t, f.tracker.CloseTab(tabpool.TabID(i)))
	}
	removed, err := f.tracker.Compact()
	require.NoError(t, err)
	assert.Empty(t, removed, "100 free nodes stay below the high watermark")

	require.NoError(t, f.tracker.CloseTab(tabpool.HighWatermark))
	removed, err = f.tracker.Compact()
	require.NoError(t, err)
	require.Len(t, removed, tabpool.HighWatermark+1-tabpool.LowWatermark)
	assert.Equal(t, tabpool.NodeID(tabpool.LowWatermark), removed[0])
	assert.Equal(t, tabpool.NodeID(tabpool.HighWatermark), removed[len(removed)-1])

	records := f.persisted(t)
	assert.Len(t, records, tabpool.LowWatermark)
	for _, rec := range records {
		assert.True(t, rec.Free())
		assert.Less(t, rec.NodeID, int64(tabpool.LowWatermark))
	}

	loaded := f.reload(t, nil)
	assert.Equal(t, tabpool.Stats{Free: tabpool.LowWatermark, MaxUsed: tabpool.LowWatermark - 1}, loaded.Pool().Stats())
}

func TestWriteFailuresRollBack(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.tracker.OpenTab(1) // node 0
	require.NoError(t, err)
	_, err = f.tracker.OpenTab(2) // node 1
	require.NoError(t, err)
	before := f.tracker.Nodes()
	stats := f.tracker.Pool().Stats()

	f.failWrites()

	_, err = f.tracker.OpenTab(3)
	assert.Error(t, err)
	_, ok := f.tracker.Pool().GetTabNodeIdFromTabId(3)
	assert.False(t, ok)

	assert.Error(t, f.tracker.CloseTab(1))
	node, ok := f.tracker.Pool().GetTabNodeIdFromTabId(1)
	require.True(t, ok)
	assert.Equal(t, tabpool.NodeID(0), node)

	assert.Error(t, f.tracker.MoveTab(1, 1))
	node, _ = f.tracker.Pool().GetTabNodeIdFromTabId(1)
	assert.Equal(t, tabpool.NodeID(0), node)
	node, _ = f.tracker.Pool().GetTabNodeIdFromTabId(2)
	assert.Equal(t, tabpool.NodeID(1), node)

	// nodes past the maximum are not kept either
	assert.Error(t, f.tracker.MoveTab(10, 2))
	assert.Equal(t, before, f.tracker.Nodes())
	assert.Equal(t, stats, f.tracker.Pool().Stats())
	assert.Equal(t, before, f.persisted(t))

	// the pool still matches the records
	f.provider.FailApply(testPath, nil)
	assert.Equal(t, f.tracker.Nodes(), f.reload(t, nil).Nodes())
	node, err = f.tracker.OpenTab(3)
	require.NoError(t, err)
	assert.Equal(t, tabpool.NodeID(2), node)
}

func TestCompactFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i <= tabpool.HighWatermark; i++ {
		_, err := f.tracker.OpenTab(tabpool.TabID(i))
		require.NoError(t, err)
	}
	for i := 0; i <= tabpool.HighWatermark; i++ {
		require.NoError(t, f.tracker.CloseTab(tabpool.TabID(i)))
	}
	stats := f.tracker.Pool().Stats()

	f.failWrites()
	removed, err := f.tracker.Compact()
	assert.Error(t, err)
	assert.Nil(t, removed)
	assert.Equal(t, stats, f.tracker.Pool().Stats())
	assert.ElementsMatch(t, f.tracker.Nodes(), f.persisted(t))
}

func TestCustomPrefixAndSerializer(t *testing.T) {
	opts := &Options{Prefix: "sessions/tabs/", Serializer: codec.NewJSONSerializer()}
	f := newFixture(t, opts)

	_, err := f.tracker.OpenTab(42)
	require.NoError(t, err)

	found, missing, err := f.backend.ReadRecordsWithPrefix("sessions/tabs/", []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, missing)
	require.Len(t, found, 1)
	assert.JSONEq(t, `{"node_id":0,"tab_id":42}`, string(found[0].Value))

	// the default namespace is untouched
	records, err := f.backend.ReadAllRecordsWithPrefix(DefaultPrefix)
	require.NoError(t, err)
	assert.Empty(t, records)

	loaded := f.reload(t, opts)
	assert.Equal(t, f.tracker.Nodes(), loaded.Nodes())
}
