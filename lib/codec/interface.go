package codec

import (
	"fmt"
	"sort"
)

// TabNodeRecord is the persisted state of one tab node
type TabNodeRecord struct {
	NodeID int64 `json:"node_id"`
	TabID  int64 `json:"tab_id"` // -1 for a free node
}

// Free reports whether the node is not associated with a tab
func (r TabNodeRecord) Free() bool {
	return r.TabID < 0
}

// IRecordSerializer is the interface for all tab node record serializers
type IRecordSerializer interface {
	// Serialize serializes a record into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(rec TabNodeRecord) ([]byte, error)
	// Deserialize deserializes a byte array into a record
	// It takes a byte array and a pointer to a record as parameters
	// It returns an error if any
	Deserialize(b []byte, rec *TabNodeRecord) error
}

// serializers maps the configuration names to the serializer factories
var serializers = map[string]func() IRecordSerializer{
	"binary": NewBinarySerializer,
	"json":   NewJSONSerializer,
	"gob":    NewGOBSerializer,
}

// ByName returns the serializer registered under name (binary, json or gob)
func ByName(name string) (IRecordSerializer, error) {
	factory, ok := serializers[name]
	if !ok {
		return nil, fmt.Errorf("unknown serializer %q, must be one of %v", name, Names())
	}
	return factory(), nil
}

// Names returns the names accepted by ByName
func Names() []string {
	names := make([]string, 0, len(serializers))
	for name := range serializers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
