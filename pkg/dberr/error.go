// Package dberr defines the structured error taxonomy shared by every
// layer of silo: a tagged Kind, a human message, and a short context
// phrase, plus a generic Result type for callers who want to compose
// fallible steps without early-return chains.
package dberr

import "fmt"

// Kind tags the category of failure. Values mirror the error taxonomy of
// the original implementation's ErrorCode enum.
type Kind int

const (
	Success Kind = iota
	NoSchemaLoaded
	CollectionNotFound
	AttributeNotFound
	InvalidSchema
	TypeMismatch
	InvalidType
	ElementNotFound
	DuplicateElement
	EmptyElement
	ConstraintViolation
	ForeignKeyViolation
	UniqueViolation
	NotNullViolation
	SqlError
	SqlSyntaxError
	FileNotFound
	PermissionDenied
	DiskFull
	InvalidIdentifier
	InvalidValue
	InternalError
	NotImplemented
)

var kindNames = map[Kind]string{
	Success:             "Success",
	NoSchemaLoaded:       "NoSchemaLoaded",
	CollectionNotFound:   "CollectionNotFound",
	AttributeNotFound:    "AttributeNotFound",
	InvalidSchema:        "InvalidSchema",
	TypeMismatch:         "TypeMismatch",
	InvalidType:          "InvalidType",
	ElementNotFound:      "ElementNotFound",
	DuplicateElement:     "DuplicateElement",
	EmptyElement:         "EmptyElement",
	ConstraintViolation:  "ConstraintViolation",
	ForeignKeyViolation:  "ForeignKeyViolation",
	UniqueViolation:      "UniqueViolation",
	NotNullViolation:     "NotNullViolation",
	SqlError:             "SqlError",
	SqlSyntaxError:       "SqlSyntaxError",
	FileNotFound:         "FileNotFound",
	PermissionDenied:     "PermissionDenied",
	DiskFull:             "DiskFull",
	InvalidIdentifier:    "InvalidIdentifier",
	InvalidValue:         "InvalidValue",
	InternalError:        "InternalError",
	NotImplemented:       "NotImplemented",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error is the structured failure type returned by every fallible silo
// operation. It implements the standard error interface so it composes
// with errors.Is/errors.As and fmt.Errorf's %w.
type Error struct {
	Kind    Kind
	Message string
	Context string
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, context string, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: context}
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is supports errors.Is(err, dberr.New(kind, "")) comparisons by Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// InternalError otherwise. Useful at adapter boundaries that must map every
// error to a taxonomy value.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return InternalError
}

// AdapterCode is the small error-string table exposed to out-of-process
// adapters: {OK, InvalidArgument, Database, Query, NoMemory, NotOpen,
// IndexOutOfRange, Migration, SchemaValidation}.
type AdapterCode int

const (
	OK AdapterCode = iota
	InvalidArgument
	Database
	Query
	NoMemory
	NotOpen
	IndexOutOfRange
	Migration
	SchemaValidation
)

var adapterCodeNames = map[AdapterCode]string{
	OK:               "OK",
	InvalidArgument:  "InvalidArgument",
	Database:         "Database",
	Query:            "Query",
	NoMemory:         "NoMemory",
	NotOpen:          "NotOpen",
	IndexOutOfRange:  "IndexOutOfRange",
	Migration:        "Migration",
	SchemaValidation: "SchemaValidation",
}

func (c AdapterCode) String() string {
	if s, ok := adapterCodeNames[c]; ok {
		return s
	}
	return "Unknown"
}

// ToAdapterCode collapses the full Kind taxonomy down to the adapter's
// narrower error-string table. A nil err maps to OK.
func ToAdapterCode(err error) AdapterCode {
	if err == nil {
		return OK
	}
	switch KindOf(err) {
	case InvalidIdentifier, InvalidValue, TypeMismatch, InvalidType, EmptyElement:
		return InvalidArgument
	case SqlError, ConstraintViolation, ForeignKeyViolation, UniqueViolation, NotNullViolation,
		FileNotFound, PermissionDenied, DiskFull, DuplicateElement, ElementNotFound, CollectionNotFound, AttributeNotFound:
		return Database
	case SqlSyntaxError:
		return Query
	case NoSchemaLoaded:
		return NotOpen
	case InvalidSchema:
		return SchemaValidation
	default:
		return Database
	}
}

// as is a tiny indirection so this package does not need to import errors
// twice; kept local to avoid a stutter with the stdlib name in call sites.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
