package nest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnserializableValue is returned when a column value has no JSON
	// rendering. The concrete error is an *UnserializableValueError naming
	// the table, column and Go type.
	ErrUnserializableValue = errors.New("nestdump: unserializable value")

	// ErrUnknownRoot is returned when an explicit root names a table that
	// is not part of the snapshot.
	ErrUnknownRoot = errors.New("nestdump: unknown root table")

	// ErrUnknownStrategy is returned for an unrecognized root strategy name.
	ErrUnknownStrategy = errors.New("nestdump: unknown root strategy")
)

// UnserializableValueError reports the offending location and type of a
// value the normalizer cannot render.
type UnserializableValueError struct {
	Table  string
	Column string
	Type   string
}

func (e *UnserializableValueError) Error() string {
	return fmt.Sprintf("%s: column %s.%s holds %s", ErrUnserializableValue, e.Table, e.Column, e.Type)
}

func (e *UnserializableValueError) Unwrap() error {
	return ErrUnserializableValue
}

// IsUnserializableValueErr returns true if err is or wraps ErrUnserializableValue.
func IsUnserializableValueErr(err error) bool {
	return errors.Is(err, ErrUnserializableValue)
}

// IsUnknownRootErr returns true if err is or wraps ErrUnknownRoot.
func IsUnknownRootErr(err error) bool {
	return errors.Is(err, ErrUnknownRoot)
}
