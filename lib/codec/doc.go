// Package codec provides the serialization of persisted tab node records.
// It defines a common interface and multiple implementations with different
// size and speed characteristics.
//
// Key Components:
//
//   - IRecordSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Protobuf wire format (node_id = 1, sint64 tab_id = 2) written
//     with protowire. Smallest output, unknown fields are skipped so newer writers stay
//     readable. Recommended and the default.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging stores by hand.
//
//   - gobSerializerImpl: Go's gob encoding. Larger and slower than the others, kept for
//     comparison in the benchmarks.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	serializer, err := codec.ByName("binary")
//	data, err := serializer.Serialize(codec.TabNodeRecord{NodeID: 3, TabID: 17})
//	var rec codec.TabNodeRecord
//	err = serializer.Deserialize(data, &rec)
package codec
