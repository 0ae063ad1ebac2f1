package codec

import (
	"encoding/json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRecordSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRecordSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IRecordSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(rec TabNodeRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func (j jsonSerializerImpl) Deserialize(b []byte, rec *TabNodeRecord) error {
	*rec = TabNodeRecord{TabID: -1}
	return json.Unmarshal(b, rec)
}
