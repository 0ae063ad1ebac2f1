package tabpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants verifies that free, missing and associated ids partition [0, maxUsed]
func checkInvariants(t *testing.T, p *Pool) {
	t.Helper()

	seen := make(map[NodeID]string)
	mark := func(id NodeID, where string) {
		if prev, ok := seen[id]; ok {
			t.Errorf("node %d is %s and %s", id, prev, where)
		}
		seen[id] = where
	}
	for _, id := range collect(p.free) {
		mark(id, "free")
	}
	for _, id := range collect(p.missing) {
		mark(id, "missing")
	}
	for id, tab := range p.nodeToTab {
		mark(id, "associated")
		assert.Equal(t, id, p.tabToNode[tab], "reverse mapping of tab %d", tab)
	}
	assert.Equal(t, len(p.nodeToTab), len(p.tabToNode))

	for id := range seen {
		assert.True(t, id >= 0 && id <= p.maxUsed, "node %d outside [0, %d]", id, p.maxUsed)
	}
	assert.Equal(t, int(p.maxUsed)+1, len(seen), "ids in [0, %d] are not fully covered", p.maxUsed)
}

func nodeRange(from, to NodeID) []NodeID {
	out := make([]NodeID, 0)
	for id := from; id < to; id++ {
		out = append(out, id)
	}
	return out
}

// --------------------------------------------------------------------------
// Allocation
// --------------------------------------------------------------------------

func TestNewPool(t *testing.T) {
	p := New()
	assert.Equal(t, InvalidNodeID, p.GetMaxUsedTabNodeIdForTest())
	assert.Empty(t, p.GetAllTabNodeIds())
	assert.Empty(t, p.CleanupTabNodes())
	checkInvariants(t, p)
}

func TestAssociateWithFreeTabNodeIsDense(t *testing.T) {
	p := New()
	for i := 0; i < 50; i++ {
		assert.Equal(t, NodeID(i), p.AssociateWithFreeTabNode(TabID(1000+i)))
	}
	assert.Equal(t, nodeRange(0, 50), p.GetAllTabNodeIds())
	assert.Equal(t, NodeID(49), p.GetMaxUsedTabNodeIdForTest())
	checkInvariants(t, p)
}

func TestAssociateWithFreeTabNodeReusesSmallestFree(t *testing.T) {
	p := New()
	for i := 0; i < 4; i++ {
		p.AssociateWithFreeTabNode(TabID(i))
	}

	p.FreeTab(3)
	assert.Equal(t, NodeID(3), p.AssociateWithFreeTabNode(10))

	p.FreeTab(2)
	p.FreeTab(0)
	assert.Equal(t, NodeID(0), p.AssociateWithFreeTabNode(11))
	assert.Equal(t, NodeID(2), p.AssociateWithFreeTabNode(12))
	assert.Equal(t, NodeID(4), p.AssociateWithFreeTabNode(13))
	checkInvariants(t, p)
}

func TestAssociateWithFreeTabNodeFillsHoles(t *testing.T) {
	p := New()
	p.ReassociateTabNode(5, 100)
	assert.Equal(t, nodeRange(0, 5), collect(p.missing))

	id := p.AssociateWithFreeTabNode(200)
	assert.Contains(t, nodeRange(0, 5), id)
	assert.Equal(t, NodeID(0), id)
	checkInvariants(t, p)

	for i := 1; i < 5; i++ {
		assert.Equal(t, NodeID(i), p.AssociateWithFreeTabNode(TabID(200+i)))
	}
	assert.Equal(t, NodeID(6), p.AssociateWithFreeTabNode(300))
	checkInvariants(t, p)
}

func TestAssociateWithFreeTabNodePrefersSmallerCandidate(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		p.AssociateWithFreeTabNode(TabID(i))
	}
	p.ReassociateTabNode(6, 50) // 3, 4, 5 missing
	p.FreeTab(1)                // 1 free

	assert.Equal(t, NodeID(1), p.AssociateWithFreeTabNode(60))
	assert.Equal(t, NodeID(3), p.AssociateWithFreeTabNode(61))

	p.FreeTab(0)
	assert.Equal(t, NodeID(0), p.AssociateWithFreeTabNode(62))
	checkInvariants(t, p)
}

func TestAssociateWithFreeTabNodePanicsForAssociatedTab(t *testing.T) {
	p := New()
	p.AssociateWithFreeTabNode(1)
	assert.Panics(t, func() { p.AssociateWithFreeTabNode(1) })
	assert.Panics(t, func() { p.AssociateWithFreeTabNode(InvalidTabID) })
}

// --------------------------------------------------------------------------
// Explicit association
// --------------------------------------------------------------------------

func TestAddAndAssociateTabNode(t *testing.T) {
	p := New()
	p.AddTabNode(0)
	p.AddTabNode(3)
	assert.Equal(t, []NodeID{0, 3}, collect(p.free))
	assert.Equal(t, []NodeID{1, 2}, collect(p.missing))
	checkInvariants(t, p)

	p.AssociateTabNode(3, 7)
	node, ok := p.GetTabNodeIdFromTabId(7)
	require.True(t, ok)
	assert.Equal(t, NodeID(3), node)
	tab, ok := p.GetTabIdFromTabNodeId(3)
	require.True(t, ok)
	assert.Equal(t, TabID(7), tab)

	// adding a missing id turns it into a free one
	p.AddTabNode(1)
	assert.Equal(t, []NodeID{0, 1}, collect(p.free))
	assert.Equal(t, []NodeID{2}, collect(p.missing))
	checkInvariants(t, p)

	assert.Panics(t, func() { p.AssociateTabNode(2, 8) }, "node is missing, not free")
	assert.Panics(t, func() { p.AssociateTabNode(0, 7) }, "tab is already associated")
	assert.Panics(t, func() { p.AddTabNode(3) }, "node is associated")
	assert.Panics(t, func() { p.AddTabNode(InvalidNodeID) })
}

func TestReassociateTabNode(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		p := New()
		p.ReassociateTabNode(2, 9)
		p.ReassociateTabNode(2, 9)

		node, ok := p.GetTabNodeIdFromTabId(9)
		require.True(t, ok)
		assert.Equal(t, NodeID(2), node)
		assert.Equal(t, []NodeID{0, 1}, collect(p.missing))
		assert.Empty(t, collect(p.free))
		checkInvariants(t, p)
	})

	t.Run("TabMovesToOtherNode", func(t *testing.T) {
		p := New()
		p.ReassociateTabNode(0, 9)
		p.ReassociateTabNode(1, 9)

		node, _ := p.GetTabNodeIdFromTabId(9)
		assert.Equal(t, NodeID(1), node)
		_, ok := p.GetTabIdFromTabNodeId(0)
		assert.False(t, ok)
		assert.Equal(t, []NodeID{0}, collect(p.free))
		checkInvariants(t, p)
	})

	t.Run("NodeTakenFromOtherTab", func(t *testing.T) {
		p := New()
		p.ReassociateTabNode(0, 1)
		p.ReassociateTabNode(0, 2)

		tab, _ := p.GetTabIdFromTabNodeId(0)
		assert.Equal(t, TabID(2), tab)
		_, ok := p.GetTabNodeIdFromTabId(1)
		assert.False(t, ok)
		assert.Empty(t, collect(p.free))
		checkInvariants(t, p)
	})

	t.Run("BothAssociatedElsewhere", func(t *testing.T) {
		p := New()
		p.ReassociateTabNode(0, 1)
		p.ReassociateTabNode(1, 2)
		p.ReassociateTabNode(1, 1)

		node, _ := p.GetTabNodeIdFromTabId(1)
		assert.Equal(t, NodeID(1), node)
		_, ok := p.GetTabNodeIdFromTabId(2)
		assert.False(t, ok)
		assert.Equal(t, []NodeID{0}, collect(p.free))
		checkInvariants(t, p)
	})

	t.Run("FreeAndMissingNodes", func(t *testing.T) {
		p := New()
		p.ReassociateTabNode(4, 1)
		p.AddTabNode(5)

		p.ReassociateTabNode(2, 2) // missing
		p.ReassociateTabNode(5, 3) // free
		assert.Equal(t, []NodeID{0, 1, 3}, collect(p.missing))
		assert.Empty(t, collect(p.free))
		assert.Equal(t, NodeID(5), p.GetMaxUsedTabNodeIdForTest())
		checkInvariants(t, p)
	})
}

func TestFreeTab(t *testing.T) {
	p := New()
	id := p.AssociateWithFreeTabNode(5)

	p.FreeTab(5)
	_, ok := p.GetTabNodeIdFromTabId(5)
	assert.False(t, ok)
	_, ok = p.GetTabIdFromTabNodeId(id)
	assert.False(t, ok)
	assert.Equal(t, []NodeID{id}, collect(p.free))

	// freeing twice or freeing an unknown tab is fine
	p.FreeTab(5)
	p.FreeTab(6)
	assert.Equal(t, []NodeID{id}, collect(p.free))
	checkInvariants(t, p)
}

// --------------------------------------------------------------------------
// Compaction
// --------------------------------------------------------------------------

// poolWithFreeNodes returns a pool with the nodes 0..n-1, all of them free
func poolWithFreeNodes(n int) *Pool {
	p := New()
	for i := 0; i < n; i++ {
		p.AssociateWithFreeTabNode(TabID(i))
	}
	for i := 0; i < n; i++ {
		p.FreeTab(TabID(i))
	}
	return p
}

func TestCleanupTabNodesBelowHighWatermark(t *testing.T) {
	p := poolWithFreeNodes(HighWatermark)
	assert.Empty(t, p.CleanupTabNodes())
	assert.Equal(t, HighWatermark, p.free.Len())
	assert.Equal(t, 0, p.missing.Len())
}

func TestCleanupTabNodesAboveHighWatermark(t *testing.T) {
	p := poolWithFreeNodes(HighWatermark + 1)

	deleted := p.CleanupTabNodes()
	assert.Len(t, deleted, 76)
	assert.Equal(t, nodeRange(LowWatermark, HighWatermark+1), deleted)
	assert.Equal(t, nodeRange(0, LowWatermark), collect(p.free))
	assert.Equal(t, deleted, collect(p.missing))
	checkInvariants(t, p)

	// hysteresis: nothing more to do
	assert.Empty(t, p.CleanupTabNodes())
}

func TestCleanupTabNodesKeepsAssociatedNodes(t *testing.T) {
	p := New()
	for i := 0; i < 150; i++ {
		p.AssociateWithFreeTabNode(TabID(i))
	}
	for i := 0; i < 150; i += 2 {
		p.FreeTab(TabID(i)) // 75 free
	}
	assert.Empty(t, p.CleanupTabNodes())

	for i := 1; i < 60; i += 2 {
		p.FreeTab(TabID(i)) // 105 free
	}
	deleted := p.CleanupTabNodes()
	assert.Len(t, deleted, 105-LowWatermark)
	assert.Equal(t, LowWatermark, p.free.Len())
	for _, id := range deleted {
		_, ok := p.GetTabIdFromTabNodeId(id)
		assert.False(t, ok)
	}
	assert.Len(t, p.nodeToTab, 45)
	checkInvariants(t, p)

	// compacted ids are reused before the id space grows
	assert.Equal(t, NodeID(0), p.AssociateWithFreeTabNode(1000))
}

func TestDeleteTabNode(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		p.AssociateWithFreeTabNode(TabID(i))
	}
	p.ReassociateTabNode(5, 10) // 3, 4 missing
	p.FreeTab(1)

	p.DeleteTabNode(0) // associated
	_, ok := p.GetTabNodeIdFromTabId(0)
	assert.False(t, ok)
	_, ok = p.GetTabIdFromTabNodeId(0)
	assert.False(t, ok)

	p.DeleteTabNode(1) // free
	assert.Empty(t, collect(p.free))

	p.DeleteTabNode(3)  // missing, untouched
	p.DeleteTabNode(42) // unknown
	assert.Equal(t, []NodeID{3, 4}, collect(p.missing))

	assert.Equal(t, []NodeID{2, 5}, p.GetAllTabNodeIds())
}

func TestGetAllTabNodeIds(t *testing.T) {
	p := New()
	p.ReassociateTabNode(7, 1)
	p.AddTabNode(2)
	p.AddTabNode(9)
	p.ReassociateTabNode(4, 2)

	assert.Equal(t, []NodeID{2, 4, 7, 9}, p.GetAllTabNodeIds())
	assert.Equal(t, Stats{Associated: 2, Free: 2, Missing: 6, MaxUsed: 9}, p.Stats())
	checkInvariants(t, p)
}

func TestCloneAndRestore(t *testing.T) {
	p := New()
	p.ReassociateTabNode(3, 1)
	p.AddTabNode(5)
	snapshot := p.Clone()

	// the clone does not see later changes
	p.AssociateWithFreeTabNode(2)
	p.ReassociateTabNode(10, 4)
	p.FreeTab(1)
	assert.Equal(t, []NodeID{3, 5}, snapshot.GetAllTabNodeIds())
	assert.Equal(t, Stats{Associated: 1, Free: 1, Missing: 4, MaxUsed: 5}, snapshot.Stats())

	p.Restore(snapshot)
	assert.Equal(t, snapshot.Stats(), p.Stats())
	assert.Equal(t, []NodeID{3, 5}, p.GetAllTabNodeIds())
	node, ok := p.GetTabNodeIdFromTabId(1)
	require.True(t, ok)
	assert.Equal(t, NodeID(3), node)
	_, ok = p.GetTabNodeIdFromTabId(4)
	assert.False(t, ok)
	checkInvariants(t, p)

	// restoring does not share state with the snapshot
	p.AssociateWithFreeTabNode(7)
	assert.Equal(t, 1, snapshot.Stats().Associated)
}
