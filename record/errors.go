package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a query that expects a row finds none.
	ErrNotFound = errors.New("canopy: record not found")

	// ErrUnknownColumn is returned when assigning or reading a column the schema does not declare.
	ErrUnknownColumn = errors.New("canopy: unknown column")

	// ErrUnknownType is returned when a column is declared with an unsupported type.
	ErrUnknownType = errors.New("canopy: unknown column type")

	// ErrInvalidIdentifier is returned when a table or column name contains a double quote.
	ErrInvalidIdentifier = errors.New("canopy: invalid identifier")

	// ErrImmutableKey is returned when reassigning a key column of a persisted record.
	ErrImmutableKey = errors.New("canopy: key columns of a persisted record are immutable")

	// ErrMissingKey is returned when a statement needs a key column that has no value.
	ErrMissingKey = errors.New("canopy: key column has no value")

	// ErrRecordInvalid is matched by RecordInvalidError.
	ErrRecordInvalid = errors.New("canopy: record is invalid")

	// ErrRecordNotPersisted is returned when destroying a record that was never saved.
	ErrRecordNotPersisted = errors.New("canopy: record is not persisted")

	// ErrRecordDestroyed is returned when saving a record that was destroyed.
	ErrRecordDestroyed = errors.New("canopy: record is destroyed")

	// ErrCast is matched by every CastError.
	ErrCast = errors.New("canopy: value cannot be cast")

	// ErrNumericCast is matched by CastErrors raised for non-numeric input to a numeric column.
	ErrNumericCast = errors.New("canopy: value is not numeric")

	// ErrProjection is returned when loading records from a relation that selects columns.
	ErrProjection = errors.New("canopy: relation has a projection, rows cannot be loaded as records")

	// ErrInvalidRange is returned when a range predicate cannot be materialized.
	ErrInvalidRange = errors.New("canopy: invalid range")

	// ErrPoolExhausted is returned when no session became available within the pool timeout.
	ErrPoolExhausted = errors.New("canopy: connection pool exhausted")

	// ErrPoolClosed is returned when checking out of a closed pool.
	ErrPoolClosed = errors.New("canopy: connection pool is closed")
)

// CastError reports a value that cannot be coerced to a column's declared type.
type CastError struct {
	Column  string
	Type    ColumnType
	Value   any
	Numeric bool
	Err     error
}

func (e *CastError) Error() string {
	var b strings.Builder
	b.WriteString("canopy: cannot cast ")
	fmt.Fprintf(&b, "%#v to %s", e.Value, e.Type)
	if e.Column != "" {
		fmt.Fprintf(&b, " for column %q", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying parse error, if any.
func (e *CastError) Unwrap() error {
	return e.Err
}

// Is matches ErrCast, and ErrNumericCast for numeric failures.
func (e *CastError) Is(target error) bool {
	switch target {
	case ErrCast:
		return true
	case ErrNumericCast:
		return e.Numeric
	}
	return false
}

// RecordInvalidError is returned by the strict lifecycle calls when validation fails.
type RecordInvalidError struct {
	Errors ValidationErrors
}

func (e *RecordInvalidError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRecordInvalid, e.Errors.Error())
}

// Is matches ErrRecordInvalid.
func (e *RecordInvalidError) Is(target error) bool {
	return target == ErrRecordInvalid
}
