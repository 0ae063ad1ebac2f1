package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSchemaDescriptorCodec(t *testing.T) {
	for _, version := range []int64{0, 1, 2, 300} {
		got, err := decodeSchemaDescriptor(encodeSchemaDescriptor(version))
		require.NoError(t, err)
		assert.Equal(t, version, got)
	}
}

func TestSchemaDescriptorDecode(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		version, err := decodeSchemaDescriptor(nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
	})

	t.Run("UnknownFieldsAreSkipped", func(t *testing.T) {
		raw := protowire.AppendTag(nil, 7, protowire.BytesType)
		raw = protowire.AppendString(raw, "future")
		raw = append(raw, encodeSchemaDescriptor(1)...)
		raw = protowire.AppendTag(raw, 8, protowire.Fixed32Type)
		raw = protowire.AppendFixed32(raw, 42)

		version, err := decodeSchemaDescriptor(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
	})

	t.Run("LastVersionWins", func(t *testing.T) {
		raw := append(encodeSchemaDescriptor(1), encodeSchemaDescriptor(3)...)
		version, err := decodeSchemaDescriptor(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(3), version)
	})

	t.Run("Truncated", func(t *testing.T) {
		raw := encodeSchemaDescriptor(300)
		_, err := decodeSchemaDescriptor(raw[:len(raw)-1])
		assert.Error(t, err)
	})

	t.Run("Negative", func(t *testing.T) {
		_, err := decodeSchemaDescriptor(encodeSchemaDescriptor(-1))
		assert.Error(t, err)
	})
}
