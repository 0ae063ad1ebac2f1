package codec

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// NewBinarySerializer creates a new serializer using the protobuf wire format.
// The record is encoded like the message
//
//	message TabNodeRecord { int64 node_id = 1; sint64 tab_id = 2; }
func NewBinarySerializer() IRecordSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRecordSerializer using protowire
type binarySerializerImpl struct {
}

const (
	fieldNodeID protowire.Number = 1
	fieldTabID  protowire.Number = 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(rec TabNodeRecord) ([]byte, error) {
	if rec.NodeID < 0 {
		return nil, errors.Newf("cannot serialize negative node id %d", rec.NodeID)
	}
	buf := make([]byte, 0, 2+protowire.SizeVarint(uint64(rec.NodeID))+protowire.SizeVarint(protowire.EncodeZigZag(rec.TabID)))

	buf = protowire.AppendTag(buf, fieldNodeID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(rec.NodeID))

	buf = protowire.AppendTag(buf, fieldTabID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(rec.TabID))

	return buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, rec *TabNodeRecord) error {
	*rec = TabNodeRecord{TabID: -1}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "data too short for tag")
		}
		data = data[n:]

		if typ != protowire.VarintType || (num != fieldNodeID && num != fieldTabID) {
			// skip unknown fields
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return errors.Wrapf(protowire.ParseError(n), "data too short for field %d", num)
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "data too short for field %d", num)
		}
		data = data[n:]

		if num == fieldNodeID {
			rec.NodeID = int64(v)
		} else {
			rec.TabID = protowire.DecodeZigZag(v)
		}
	}

	if rec.NodeID < 0 {
		return errors.Newf("negative node id %d", rec.NodeID)
	}
	return nil
}
