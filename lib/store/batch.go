package store

import (
	"github.com/ValentinKolb/syncstore/lib/db"
)

// WriteBatch collects puts and deletes that WriteModifications applies atomically,
// in the order they were added.
type WriteBatch struct {
	batch *db.Batch
}

// NewWriteBatch returns an empty batch
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{batch: db.NewBatch()}
}

// Put stores value under key, replacing any previous value
func (w *WriteBatch) Put(key string, value []byte) *WriteBatch {
	w.batch.Put([]byte(key), value)
	return w
}

// Delete removes key. Deleting a missing key is not an error.
func (w *WriteBatch) Delete(key string) *WriteBatch {
	w.batch.Delete([]byte(key))
	return w
}

func (w *WriteBatch) PutWithPrefix(prefix, id string, value []byte) *WriteBatch {
	return w.Put(prefix+id, value)
}

func (w *WriteBatch) DeleteWithPrefix(prefix, id string) *WriteBatch {
	return w.Delete(prefix + id)
}

// Len returns the number of operations in the batch
func (w *WriteBatch) Len() int {
	return w.batch.Len()
}

// touches reports whether any operation of the batch targets key
func (w *WriteBatch) touches(key string) bool {
	for _, op := range w.batch.Ops() {
		if string(op.Key) == key {
			return true
		}
	}
	return false
}
