package executor

import (
	"errors"
	"fmt"

	"github.com/tuannm99/flatsql/internal/catalog"
	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/sql/parser"
)

// ErrorKind is the failure class reported to callers.
type ErrorKind string

const (
	IOFailure     ErrorKind = "io_failure"
	NotFound      ErrorKind = "not_found"
	ParseFailure  ErrorKind = "parse_failure"
	ArityMismatch ErrorKind = "arity_mismatch"
	TypeMismatch  ErrorKind = "type_mismatch"
	SizeExceeded  ErrorKind = "size_exceeded"
	AlreadyExists ErrorKind = "already_exists"
)

// Classify maps err to its ErrorKind. Unrecognized errors are I/O failures.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, record.ErrArityMismatch):
		return ArityMismatch
	case errors.Is(err, record.ErrTypeMismatch):
		return TypeMismatch
	case errors.Is(err, record.ErrSizeExceeded):
		return SizeExceeded
	case errors.Is(err, catalog.ErrTableExists):
		return AlreadyExists
	case errors.Is(err, catalog.ErrTableNotFound):
		return NotFound
	case errors.Is(err, parser.ErrIncomplete),
		errors.Is(err, parser.ErrUnsupported),
		errors.Is(err, parser.ErrSyntax),
		errors.Is(err, record.ErrBadSchema),
		errors.Is(err, record.ErrUnknownType):
		return ParseFailure
	default:
		return IOFailure
	}
}

// CommitError aborts an atomic COMMIT before anything is applied.
type CommitError struct {
	Index int
	SQL   string
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit aborted, nothing applied: statement %d (%q): %v", e.Index, e.SQL, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
