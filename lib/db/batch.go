package db

// OpKind is the type of a single batch operation
type OpKind uint8

const (
	OpPut OpKind = iota + 1
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one operation of a Batch. Value is nil for deletes.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// Batch is an ordered list of put and delete operations that an engine applies
// atomically. Later operations on the same key win.
//
// The batch copies keys and values on insertion, so callers may reuse their buffers.
type Batch struct {
	ops  []Op
	size int
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{}
}

// Put appends a put of key -> value.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, Op{
		Kind:  OpPut,
		Key:   append([]byte(nil), key...),
		Value: append([]byte{}, value...),
	})
	b.size += len(key) + len(value)
}

// Delete appends a delete of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, Op{
		Kind: OpDelete,
		Key:  append([]byte(nil), key...),
	})
	b.size += len(key)
}

// Append appends all operations of other to b.
func (b *Batch) Append(other *Batch) {
	if other == nil {
		return
	}
	b.ops = append(b.ops, other.ops...)
	b.size += other.size
}

// Ops returns the operations in insertion order. The slice must not be modified.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Size returns the summed length of all keys and values.
func (b *Batch) Size() int {
	return b.size
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}
