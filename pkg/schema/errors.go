package schema

import "errors"

// ErrInconsistentSchema is returned when a foreign key references a table or
// column that is not part of the snapshot.
var ErrInconsistentSchema = errors.New("nestdump/schema: inconsistent schema")

// IsInconsistentSchemaErr returns true if err is or wraps ErrInconsistentSchema.
func IsInconsistentSchemaErr(err error) bool {
	return errors.Is(err, ErrInconsistentSchema)
}
