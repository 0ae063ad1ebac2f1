// Package tabstore persists a tabpool.Pool in a store.
//
// Every tab node is stored as one record under a prefix (DefaultPrefix, "tab_node-")
// with the decimal node id as record id. The value is a codec.TabNodeRecord holding the
// node id and the associated tab id (-1 for free nodes). Missing ids have no record.
//
// A Tracker applies every change to the pool first and then writes the affected records
// in one atomic batch:
//
//	tracker := tabstore.NewTracker(backend, nil)
//	if err := tracker.Load(); err != nil { ... }
//
//	node, err := tracker.OpenTab(17)    // associate with the smallest reusable node
//	err = tracker.MoveTab(node, 18)     // node now belongs to tab 18, tab 17 is unassociated
//	err = tracker.CloseTab(18)          // node is free again
//	removed, err := tracker.Compact()   // drop the largest free nodes above the high watermark
package tabstore
