package source

import "errors"

var (
	// ErrUnsupportedDatabase is returned when a URL or driver name maps to no
	// known dialect.
	ErrUnsupportedDatabase = errors.New("nestdump/source: unsupported database")

	// ErrBadPattern is returned for an exclude pattern that is not a valid glob.
	ErrBadPattern = errors.New("nestdump/source: bad exclude pattern")

	// ErrCanonicalize is returned when a driver value cannot be converted to
	// the canonical type of its column kind.
	ErrCanonicalize = errors.New("nestdump/source: cannot convert value")
)

// IsUnsupportedDatabaseErr returns true if err is or wraps ErrUnsupportedDatabase.
func IsUnsupportedDatabaseErr(err error) bool {
	return errors.Is(err, ErrUnsupportedDatabase)
}
