package tabstore

import (
	"strconv"

	"github.com/ValentinKolb/syncstore/lib/codec"
	"github.com/ValentinKolb/syncstore/lib/store"
	"github.com/ValentinKolb/syncstore/lib/tabpool"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("tabstore")

// DefaultPrefix is the namespace of the tab node records
const DefaultPrefix = "tab_node-"

// Options configures a Tracker
type Options struct {
	Prefix     string                  // Record namespace (default DefaultPrefix)
	Serializer codec.IRecordSerializer // Record encoding (default binary)
}

// Tracker keeps a tabpool.Pool and its persisted records in sync.
// Every mutation first changes the pool and then writes all affected records in
// one atomic batch. If the write fails, the pool is restored to its state before
// the call and the error returned.
//
// Like the pool and the store, a Tracker is not safe for concurrent use.
type Tracker struct {
	store      store.IStore
	pool       *tabpool.Pool
	serializer codec.IRecordSerializer
	prefix     string
}

// NewTracker creates a tracker with an empty pool. Call Load to restore persisted state.
func NewTracker(s store.IStore, opts *Options) *Tracker {
	t := &Tracker{
		store:      s,
		pool:       tabpool.New(),
		serializer: codec.NewBinarySerializer(),
		prefix:     DefaultPrefix,
	}
	if opts != nil {
		if opts.Prefix != "" {
			t.prefix = opts.Prefix
		}
		if opts.Serializer != nil {
			t.serializer = opts.Serializer
		}
	}
	return t
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Load replaces the pool with the state persisted in the store.
// If two records claim the same tab, the record read last wins and the other
// node is rewritten as free.
func (t *Tracker) Load() error {
	records, err := t.store.ReadAllRecordsWithPrefix(t.prefix)
	if err != nil {
		return errors.Wrap(err, "load tab nodes")
	}

	pool := tabpool.New()
	fixes := store.NewWriteBatch()
	for _, r := range records {
		rec, err := t.decode(r)
		if err != nil {
			return err
		}
		node := tabpool.NodeID(rec.NodeID)
		if rec.Free() {
			pool.AddTabNode(node)
			continue
		}

		tab := tabpool.TabID(rec.TabID)
		if prev, ok := pool.GetTabNodeIdFromTabId(tab); ok {
			log.Warningf("tab %d is claimed by nodes %d and %d, freeing node %d", tab, prev, node, prev)
			if err := t.putRecord(fixes, prev, tabpool.InvalidTabID); err != nil {
				return err
			}
		}
		pool.ReassociateTabNode(node, tab)
	}

	if fixes.Len() > 0 {
		if err := t.store.WriteModifications(fixes); err != nil {
			return errors.Wrap(err, "rewrite conflicting tab nodes")
		}
	}

	t.pool = pool
	stats := pool.Stats()
	log.Infof("loaded %d tab nodes (%d associated, %d free)", len(records), stats.Associated, stats.Free)
	return nil
}

func (t *Tracker) decode(r store.Record) (codec.TabNodeRecord, error) {
	var rec codec.TabNodeRecord
	if err := t.serializer.Deserialize(r.Value, &rec); err != nil {
		return rec, errors.Wrapf(err, "decode tab node record %q", r.ID)
	}
	if rec.NodeID < 0 {
		return rec, errors.Newf("tab node record %q contains invalid node id %d", r.ID, rec.NodeID)
	}
	if strconv.FormatInt(rec.NodeID, 10) != r.ID {
		return rec, errors.Newf("tab node record %q contains node id %d", r.ID, rec.NodeID)
	}
	return rec, nil
}

func (t *Tracker) key(node tabpool.NodeID) string {
	return strconv.FormatInt(int64(node), 10)
}

func (t *Tracker) putRecord(batch *store.WriteBatch, node tabpool.NodeID, tab tabpool.TabID) error {
	value, err := t.serializer.Serialize(codec.TabNodeRecord{NodeID: int64(node), TabID: int64(tab)})
	if err != nil {
		return errors.Wrapf(err, "encode tab node %d", node)
	}
	batch.PutWithPrefix(t.prefix, t.key(node), value)
	return nil
}

// --------------------------------------------------------------------------
// Tab lifecycle
// --------------------------------------------------------------------------

// OpenTab associates tab with a free node and persists it.
// A tab that is already associated keeps its node.
func (t *Tracker) OpenTab(tab tabpool.TabID) (tabpool.NodeID, error) {
	if node, ok := t.pool.GetTabNodeIdFromTabId(tab); ok {
		return node, nil
	}

	snapshot := t.pool.Clone()
	node := t.pool.AssociateWithFreeTabNode(tab)
	batch := store.NewWriteBatch()
	err := t.putRecord(batch, node, tab)
	if err == nil {
		err = t.store.WriteModifications(batch)
	}
	if err != nil {
		t.pool.Restore(snapshot)
		return tabpool.InvalidNodeID, errors.Wrapf(err, "open tab %d", tab)
	}
	return node, nil
}

// MoveTab associates tab with the given node, e.g. when a tab is restored with a
// node id that was assigned elsewhere. The previous node of tab becomes free, a
// tab previously holding node loses its association.
func (t *Tracker) MoveTab(node tabpool.NodeID, tab tabpool.TabID) error {
	prevNode, hadNode := t.pool.GetTabNodeIdFromTabId(tab)
	if hadNode && prevNode == node {
		return nil
	}

	snapshot := t.pool.Clone()
	t.pool.ReassociateTabNode(node, tab)

	batch := store.NewWriteBatch()
	err := t.putRecord(batch, node, tab)
	if err == nil && hadNode {
		err = t.putRecord(batch, prevNode, tabpool.InvalidTabID)
	}
	if err == nil {
		err = t.store.WriteModifications(batch)
	}
	if err != nil {
		t.pool.Restore(snapshot)
		return errors.Wrapf(err, "move tab %d to node %d", tab, node)
	}
	return nil
}

// CloseTab frees the node of tab. Closing an unknown tab is a no-op.
func (t *Tracker) CloseTab(tab tabpool.TabID) error {
	node, ok := t.pool.GetTabNodeIdFromTabId(tab)
	if !ok {
		return nil
	}

	snapshot := t.pool.Clone()
	t.pool.FreeTab(tab)
	batch := store.NewWriteBatch()
	err := t.putRecord(batch, node, tabpool.InvalidTabID)
	if err == nil {
		err = t.store.WriteModifications(batch)
	}
	if err != nil {
		t.pool.Restore(snapshot)
		return errors.Wrapf(err, "close tab %d", tab)
	}
	return nil
}

// Compact runs the pool cleanup and deletes the records of the removed nodes.
// It returns the removed node ids (nil if the pool is below its high watermark).
func (t *Tracker) Compact() ([]tabpool.NodeID, error) {
	snapshot := t.pool.Clone()
	removed := t.pool.CleanupTabNodes()
	if len(removed) == 0 {
		return nil, nil
	}

	batch := store.NewWriteBatch()
	for _, node := range removed {
		batch.DeleteWithPrefix(t.prefix, t.key(node))
	}
	if err := t.store.WriteModifications(batch); err != nil {
		t.pool.Restore(snapshot)
		return nil, errors.Wrap(err, "delete compacted tab nodes")
	}
	for _, node := range removed {
		t.pool.DeleteTabNode(node)
	}
	log.Infof("deleted %d compacted tab nodes", len(removed))
	return removed, nil
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// Nodes returns all free and associated nodes in ascending node order
func (t *Tracker) Nodes() []codec.TabNodeRecord {
	ids := t.pool.GetAllTabNodeIds()
	out := make([]codec.TabNodeRecord, len(ids))
	for i, id := range ids {
		tab, _ := t.pool.GetTabIdFromTabNodeId(id)
		out[i] = codec.TabNodeRecord{NodeID: int64(id), TabID: int64(tab)}
	}
	return out
}

// Pool returns the tracked pool. Mutating it directly bypasses persistence.
func (t *Tracker) Pool() *tabpool.Pool {
	return t.pool
}

// Prefix returns the record namespace of the tracker
func (t *Tracker) Prefix() string {
	return t.prefix
}
