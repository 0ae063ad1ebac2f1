package store

import (
	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/errors"
)

// InitOutcome is the result of the last Init call of a Backend.
// The values are stable and exported as metric labels.
type InitOutcome int

const (
	InitSuccess InitOutcome = iota
	InitNotFound
	InitCorruption
	InitNotSupported
	InitInvalidArgument
	InitIOError
	InitRecoveredAfterCorruption
	InitUnknown
	InitSchemaDescriptorIssue
	InitMigrationFailure

	// InitNotAttempted is reported before the first Init call
	InitNotAttempted InitOutcome = -1
)

func (o InitOutcome) String() string {
	switch o {
	case InitSuccess:
		return "success"
	case InitNotFound:
		return "not_found"
	case InitCorruption:
		return "corruption"
	case InitNotSupported:
		return "not_supported"
	case InitInvalidArgument:
		return "invalid_argument"
	case InitIOError:
		return "io_error"
	case InitRecoveredAfterCorruption:
		return "recovered_after_corruption"
	case InitSchemaDescriptorIssue:
		return "schema_descriptor_issue"
	case InitMigrationFailure:
		return "migration_failure"
	case InitNotAttempted:
		return "not_attempted"
	default:
		return "unknown"
	}
}

// Recovery is the result of the corruption recovery of the last Init call.
type Recovery int

const (
	RecoveryNone      Recovery = iota // The engine opened without corruption
	RecoverySucceeded                 // The corrupted data was destroyed and a fresh engine opened
	RecoveryFailed                    // Destroying or reopening failed
)

func (r Recovery) String() string {
	switch r {
	case RecoverySucceeded:
		return "succeeded"
	case RecoveryFailed:
		return "failed"
	default:
		return "none"
	}
}

// classifyOpenError maps an engine open error to its outcome and failure kind
func classifyOpenError(err error) (InitOutcome, OpenFailure) {
	switch {
	case errors.Is(err, db.ErrCorruption):
		return InitCorruption, OpenFailureCorruption
	case errors.Is(err, db.ErrNotFound):
		return InitNotFound, OpenFailureNotFound
	case errors.Is(err, db.ErrNotSupported):
		return InitNotSupported, OpenFailureNotSupported
	case errors.Is(err, db.ErrInvalidArgument):
		return InitInvalidArgument, OpenFailureInvalidArgument
	case errors.Is(err, db.ErrIO):
		return InitIOError, OpenFailureIOError
	default:
		return InitUnknown, OpenFailureUnknown
	}
}
