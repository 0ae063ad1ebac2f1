package store

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// SchemaDescriptorKey is the reserved key holding the schema descriptor.
	// It is never returned by reads and cannot be written through a WriteBatch.
	SchemaDescriptorKey = "_schema_descriptor"

	// LatestSchemaVersion is the schema version this binary writes and understands
	LatestSchemaVersion int64 = 1

	// field number of version_number in the descriptor message
	descriptorVersionField protowire.Number = 1
)

// encodeSchemaDescriptor serializes a descriptor message with the given version_number
func encodeSchemaDescriptor(version int64) []byte {
	buf := protowire.AppendTag(nil, descriptorVersionField, protowire.VarintType)
	return protowire.AppendVarint(buf, uint64(version))
}

// decodeSchemaDescriptor parses a descriptor message and returns its version_number.
// Unknown fields are skipped. A message without version_number (including the
// empty message) has version 0. Negative versions are rejected.
func decodeSchemaDescriptor(b []byte) (int64, error) {
	var version int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, errors.Wrap(protowire.ParseError(n), "schema descriptor: tag")
		}
		b = b[n:]

		if num == descriptorVersionField && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return 0, errors.Wrap(protowire.ParseError(m), "schema descriptor: version_number")
			}
			version = int64(v)
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return 0, errors.Wrapf(protowire.ParseError(m), "schema descriptor: field %d", num)
		}
		b = b[m:]
	}
	if version < 0 {
		return 0, errors.Newf("schema descriptor: negative version_number %d", version)
	}
	return version, nil
}

// --------------------------------------------------------------------------
// Migrations
// --------------------------------------------------------------------------

// migrationStep moves the store from one version to the next. A step adds its
// changes to batch; the backend appends the new descriptor and commits the batch
// with a synchronous write.
type migrationStep func(b *Backend, batch *WriteBatch) error

// migrations maps the version a step starts from to the step
var migrations = map[int64]migrationStep{
	0: migrate0To1,
}

// migrate0To1 introduces the schema descriptor, no data changes are needed
func migrate0To1(_ *Backend, _ *WriteBatch) error {
	return nil
}
