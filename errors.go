package schemakit

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the error kinds surfaced by the catalog
// and the command builders.
var (
	// ErrNotFound is returned when a requested table does not exist.
	ErrNotFound = errors.New("schemakit: table not found")

	// ErrUnsupported is returned when an operation cannot be expressed
	// in the target dialect.
	ErrUnsupported = errors.New("schemakit: operation not supported")

	// ErrNoColumns is returned when an insert or update resolves to zero
	// usable columns.
	ErrNoColumns = errors.New("schemakit: no columns")
)

// NotFoundError represents an error when a table is not found.
type NotFoundError struct {
	table string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schemakit: table %q not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table name that was looked up.
func (e *NotFoundError) Table() string {
	return e.table
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{table: table}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// UnsupportedError represents an operation that a dialect cannot express.
type UnsupportedError struct {
	Dialect string // Dialect name
	Op      string // Operation (e.g., "rename column", "offset")
	Reason  string // Optional detail
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schemakit: %s is not supported by %s: %s", e.Op, e.Dialect, e.Reason)
	}
	return fmt.Sprintf("schemakit: %s is not supported by %s", e.Op, e.Dialect)
}

// Is reports whether the target error matches UnsupportedError.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(dialect, op string) *UnsupportedError {
	return &UnsupportedError{Dialect: dialect, Op: op}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// NoColumnsError is returned when the data of an insert, update or
// counter update does not name a single usable column of the table.
type NoColumnsError struct {
	Table string // Table name
	Op    string // Operation (e.g., "update", "update counters")
}

// Error returns the error string.
func (e *NoColumnsError) Error() string {
	return fmt.Sprintf("schemakit: no columns are being %s for table %q", e.Op, e.Table)
}

// Is reports whether the target error matches NoColumnsError.
func (e *NoColumnsError) Is(err error) bool {
	return err == ErrNoColumns
}

// NewNoColumnsError returns a new NoColumnsError.
func NewNoColumnsError(table, op string) *NoColumnsError {
	return &NoColumnsError{Table: table, Op: op}
}

// IsNoColumns returns true if the error is a NoColumnsError.
func IsNoColumns(err error) bool {
	if err == nil {
		return false
	}
	var e *NoColumnsError
	return errors.As(err, &e) || errors.Is(err, ErrNoColumns)
}

// MetadataError wraps a failure of an introspection query with the
// table and step that issued it.
type MetadataError struct {
	Table string // Table being introspected (empty for catalog-wide queries)
	Op    string // Step (e.g., "columns", "foreign keys", "table names")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MetadataError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schemakit: loading %s of %q: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("schemakit: loading %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetadataError) Unwrap() error {
	return e.Err
}

// NewMetadataError returns a new MetadataError.
func NewMetadataError(table, op string, err error) *MetadataError {
	return &MetadataError{Table: table, Op: op, Err: err}
}

// IsMetadataError returns true if the error is a MetadataError.
func IsMetadataError(err error) bool {
	if err == nil {
		return false
	}
	var e *MetadataError
	return errors.As(err, &e)
}
