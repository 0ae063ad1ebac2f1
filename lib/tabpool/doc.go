// Package tabpool allocates tab node ids.
//
// A tab node is the persisted representation of one open tab. Node ids are small
// integers starting at 0 and are kept as dense as possible: freed ids are reused
// smallest first, holes left by externally dictated ids (ReassociateTabNode) are
// filled before the id space grows, and CleanupTabNodes gives back the largest
// free ids once more than HighWatermark of them pile up.
//
// The pool does no I/O. Persisting its state is up to the caller, see package tabstore.
package tabpool
