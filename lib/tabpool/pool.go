package tabpool

import (
	"fmt"

	"github.com/google/btree"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("tabpool")

// NodeID identifies a tab node. Valid ids are >= 0.
type NodeID int

// TabID is an externally supplied session identifier. Valid ids are >= 0.
type TabID int64

const (
	InvalidNodeID NodeID = -1
	InvalidTabID  TabID  = -1

	// CleanupTabNodes only compacts once more than HighWatermark nodes are free
	// and then stops at LowWatermark free nodes.
	HighWatermark = 100
	LowWatermark  = 25

	btreeDegree = 16
)

// Pool hands out small, densely packed node ids and keeps the 1:1 association
// between node ids and tab ids.
//
// Every id in [0, MaxUsed] is either associated, free or missing. Missing ids
// are holes that were never handed out (or were compacted away) and are reused
// before the id space grows. The only exception are ids removed with DeleteTabNode,
// which are no longer tracked at all.
//
// A Pool is not safe for concurrent use. Violated preconditions panic.
type Pool struct {
	nodeToTab map[NodeID]TabID
	tabToNode map[TabID]NodeID
	free      *btree.BTreeG[NodeID]
	missing   *btree.BTreeG[NodeID]
	maxUsed   NodeID
}

// New returns an empty pool
func New() *Pool {
	return &Pool{
		nodeToTab: make(map[NodeID]TabID),
		tabToNode: make(map[TabID]NodeID),
		free:      btree.NewOrderedG[NodeID](btreeDegree),
		missing:   btree.NewOrderedG[NodeID](btreeDegree),
		maxUsed:   InvalidNodeID,
	}
}

// --------------------------------------------------------------------------
// Association
// --------------------------------------------------------------------------

// AddTabNode registers id as an existing, unassociated node.
// Ids above the current maximum advance it; the ids skipped in between become missing.
func (p *Pool) AddTabNode(id NodeID) {
	mustBeValidNode(id)
	if tab, ok := p.nodeToTab[id]; ok {
		panic(fmt.Sprintf("tabpool: AddTabNode(%d): node is associated with tab %d", id, tab))
	}
	p.addNode(id)
}

func (p *Pool) addNode(id NodeID) {
	for hole := p.maxUsed + 1; hole < id; hole++ {
		p.missing.ReplaceOrInsert(hole)
	}
	if id > p.maxUsed {
		p.maxUsed = id
	}
	p.free.ReplaceOrInsert(id)
	p.missing.Delete(id)
}

// AssociateTabNode associates the free node id with tab, which must not be associated yet.
func (p *Pool) AssociateTabNode(id NodeID, tab TabID) {
	mustBeValidNode(id)
	mustBeValidTab(tab)
	if node, ok := p.tabToNode[tab]; ok {
		panic(fmt.Sprintf("tabpool: AssociateTabNode(%d, %d): tab is associated with node %d", id, tab, node))
	}
	if _, ok := p.free.Delete(id); !ok {
		panic(fmt.Sprintf("tabpool: AssociateTabNode(%d, %d): node is not free", id, tab))
	}
	p.nodeToTab[id] = tab
	p.tabToNode[tab] = id
	log.Debugf("associated node %d with tab %d", id, tab)
}

// AssociateWithFreeTabNode associates tab with the smallest reusable node id and returns it.
// Missing ids are only preferred when they are smaller than the smallest free id.
// A new id is allocated when nothing can be reused.
func (p *Pool) AssociateWithFreeTabNode(tab TabID) NodeID {
	mustBeValidTab(tab)
	if node, ok := p.tabToNode[tab]; ok {
		panic(fmt.Sprintf("tabpool: AssociateWithFreeTabNode(%d): tab is associated with node %d", tab, node))
	}

	var id NodeID
	minFree, hasFree := p.free.Min()
	minMissing, hasMissing := p.missing.Min()
	switch {
	case !hasFree && !hasMissing:
		id = p.maxUsed + 1
	case hasMissing && (!hasFree || minMissing < minFree):
		id = minMissing
	default:
		id = minFree
	}

	p.addNode(id)
	p.AssociateTabNode(id, tab)
	return id
}

// ReassociateTabNode associates id with tab regardless of their current state.
// A previous node of tab and a previous tab of id are freed first. Unknown ids
// are added to the pool, ids skipped on the way become missing.
// Calling it again with the same arguments is a no-op.
func (p *Pool) ReassociateTabNode(id NodeID, tab TabID) {
	mustBeValidNode(id)
	mustBeValidTab(tab)

	if node, ok := p.tabToNode[tab]; ok {
		if node == id {
			return
		}
		p.FreeTab(tab)
	}

	if other, ok := p.nodeToTab[id]; ok {
		p.FreeTab(other)
	} else {
		p.addNode(id)
	}
	p.AssociateTabNode(id, tab)
}

// FreeTab returns the node of tab to the free nodes. Unassociated tabs are ignored.
func (p *Pool) FreeTab(tab TabID) {
	id, ok := p.tabToNode[tab]
	if !ok {
		return
	}
	delete(p.nodeToTab, id)
	delete(p.tabToNode, tab)
	p.free.ReplaceOrInsert(id)
	log.Debugf("freed node %d of tab %d", id, tab)
}

// --------------------------------------------------------------------------
// Compaction
// --------------------------------------------------------------------------

// CleanupTabNodes moves the largest free nodes to the missing ids until only
// LowWatermark free nodes are left, but only if more than HighWatermark are free.
// It returns the moved ids in ascending order so the caller can delete their records.
func (p *Pool) CleanupTabNodes() []NodeID {
	if p.free.Len() <= HighWatermark {
		return nil
	}

	deleted := make([]NodeID, p.free.Len()-LowWatermark)
	for i := len(deleted) - 1; p.free.Len() > LowWatermark; i-- {
		id, _ := p.free.DeleteMax()
		p.missing.ReplaceOrInsert(id)
		deleted[i] = id
	}
	log.Infof("compacted %d free tab nodes, %d left", len(deleted), p.free.Len())
	return deleted
}

// DeleteTabNode forgets id, whether it is associated or free. Missing ids and
// unknown ids are left untouched.
func (p *Pool) DeleteTabNode(id NodeID) {
	tab, ok := p.nodeToTab[id]
	if !ok {
		p.free.Delete(id)
		return
	}
	delete(p.nodeToTab, id)
	delete(p.tabToNode, tab)
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// GetTabNodeIdFromTabId returns the node associated with tab
func (p *Pool) GetTabNodeIdFromTabId(tab TabID) (NodeID, bool) {
	id, ok := p.tabToNode[tab]
	if !ok {
		return InvalidNodeID, false
	}
	return id, true
}

// GetTabIdFromTabNodeId returns the tab associated with id
func (p *Pool) GetTabIdFromTabNodeId(id NodeID) (TabID, bool) {
	tab, ok := p.nodeToTab[id]
	if !ok {
		return InvalidTabID, false
	}
	return tab, true
}

// GetAllTabNodeIds returns the free and associated ids in ascending order
func (p *Pool) GetAllTabNodeIds() []NodeID {
	ids := btree.NewOrderedG[NodeID](btreeDegree)
	p.free.Ascend(func(id NodeID) bool {
		ids.ReplaceOrInsert(id)
		return true
	})
	for id := range p.nodeToTab {
		ids.ReplaceOrInsert(id)
	}
	return collect(ids)
}

// GetMaxUsedTabNodeIdForTest returns the largest id ever used (InvalidNodeID for a new pool)
func (p *Pool) GetMaxUsedTabNodeIdForTest() NodeID {
	return p.maxUsed
}

// Stats summarizes the pool
type Stats struct {
	Associated int    `json:"associated"`
	Free       int    `json:"free"`
	Missing    int    `json:"missing"`
	MaxUsed    NodeID `json:"max_used"`
}

// Clone returns an independent copy of the pool
func (p *Pool) Clone() *Pool {
	c := &Pool{
		nodeToTab: make(map[NodeID]TabID, len(p.nodeToTab)),
		tabToNode: make(map[TabID]NodeID, len(p.tabToNode)),
		free:      p.free.Clone(),
		missing:   p.missing.Clone(),
		maxUsed:   p.maxUsed,
	}
	for id, tab := range p.nodeToTab {
		c.nodeToTab[id] = tab
		c.tabToNode[tab] = id
	}
	return c
}

// Restore replaces the state of p with the state of snapshot
func (p *Pool) Restore(snapshot *Pool) {
	*p = *snapshot.Clone()
}

func (p *Pool) Stats() Stats {
	return Stats{
		Associated: len(p.nodeToTab),
		Free:       p.free.Len(),
		Missing:    p.missing.Len(),
		MaxUsed:    p.maxUsed,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func collect(t *btree.BTreeG[NodeID]) []NodeID {
	out := make([]NodeID, 0, t.Len())
	t.Ascend(func(id NodeID) bool {
		out = append(out, id)
		return true
	})
	return out
}

func mustBeValidNode(id NodeID) {
	if id <= InvalidNodeID {
		panic(fmt.Sprintf("tabpool: invalid node id %d", id))
	}
}

func mustBeValidTab(tab TabID) {
	if tab <= InvalidTabID {
		panic(fmt.Sprintf("tabpool: invalid tab id %d", tab))
	}
}
