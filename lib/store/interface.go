package store

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the record level interface of an initialized store.
// Records live in namespaces identified by a string prefix; a record's storage
// key is the plain concatenation prefix + id. All methods return a *Error on failure.
type IStore interface {
	// ReadAllRecordsWithPrefix returns every record whose key starts with prefix,
	// in ascending bytewise key order, with the prefix stripped from the id.
	ReadAllRecordsWithPrefix(prefix string) (records []Record, err error)
	// ReadRecordsWithPrefix looks up prefix + id for every id. Found records are returned
	// in the order of ids, the ids without a record are collected in missing.
	ReadRecordsWithPrefix(prefix string, ids []string) (found []Record, missing []string, err error)
	// WriteModifications applies all puts and deletes of the batch atomically.
	WriteModifications(batch *WriteBatch) (err error)
	// DeleteDataAndMetadataForPrefix deletes every record whose key starts with prefix.
	DeleteDataAndMetadataForPrefix(prefix string) (err error)
}

// Record is a single stored record. ID is the key without the namespace prefix.
type Record struct {
	ID    string
	Value []byte
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code  RetCode     // The return code
	Msg   string      // The error message.
	Kind  OpenFailure // Set for RetCOpenFailure
	Step  int64       // Set for RetCMigrationFailed: the version the failing step started from
	Cause error       // The underlying engine error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
	switch e.Code {
	case RetCOpenFailure:
		msg = fmt.Sprintf("%s [%s]", msg, e.Kind)
	case RetCMigrationFailed:
		msg = fmt.Sprintf("%s [step %d]", msg, e.Step)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// wrapError creates a new Error with the given code, message and cause.
func wrapError(code RetCode, cause error, msg string) *Error {
	return &Error{
		Code:  code,
		Msg:   msg,
		Cause: cause,
	}
}

// CodeOf returns the RetCode of err. Errors that are not a *Error are reported
// as RetCInternalError, nil as RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess                 RetCode = iota // 0: Command executed successfully.
	RetCInternalError                          // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                   // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                       // 3: Invalid operation (e.g. writing the reserved schema key).
	RetCOpenFailure                            // 4: The engine could not be opened, see Error.Kind.
	RetCSchemaDescriptorInvalid                // 5: The stored schema descriptor could not be read or parsed.
	RetCSchemaTooNew                           // 6: The stored schema version is newer than this binary supports.
	RetCVersionTooHigh                         // 7: A migration was requested to an older version.
	RetCMigrationFailed                        // 8: A migration step failed, see Error.Step.
	RetCIOError                                // 9: Reading or writing the engine failed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCOpenFailure:
		return "OpenFailure"
	case RetCSchemaDescriptorInvalid:
		return "SchemaDescriptorInvalid"
	case RetCSchemaTooNew:
		return "SchemaTooNew"
	case RetCVersionTooHigh:
		return "VersionTooHigh"
	case RetCMigrationFailed:
		return "MigrationFailed"
	case RetCIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// OpenFailure classifies why the engine could not be opened.
type OpenFailure uint8

const (
	OpenFailureUnknown OpenFailure = iota
	OpenFailureNotFound
	OpenFailureCorruption
	OpenFailureNotSupported
	OpenFailureInvalidArgument
	OpenFailureIOError
)

func (k OpenFailure) String() string {
	switch k {
	case OpenFailureNotFound:
		return "NotFound"
	case OpenFailureCorruption:
		return "Corruption"
	case OpenFailureNotSupported:
		return "NotSupported"
	case OpenFailureInvalidArgument:
		return "InvalidArgument"
	case OpenFailureIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}
