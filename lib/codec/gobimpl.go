package codec

import (
	"bytes"
	"encoding/gob"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRecordSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRecordSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(rec TabNodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, rec *TabNodeRecord) error {
	*rec = TabNodeRecord{}
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	return dec.Decode(rec)
}
