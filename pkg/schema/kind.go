package schema

import "strings"

// Kind classifies a column by the canonical Go type its values carry.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDecimal
	KindDate
	KindDateTime
	KindUUID
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindUUID:
		return "uuid"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Serializable reports whether values of this kind have a JSON rendering.
func (k Kind) Serializable() bool {
	return k != KindBytes
}

var kindsByType = map[string]Kind{
	"INT": KindInt, "INT2": KindInt, "INT4": KindInt, "INT8": KindInt,
	"INTEGER": KindInt, "SMALLINT": KindInt, "BIGINT": KindInt,
	"TINYINT": KindInt, "MEDIUMINT": KindInt, "YEAR": KindInt,
	"SERIAL": KindInt, "SMALLSERIAL": KindInt, "BIGSERIAL": KindInt,

	"NUMERIC": KindDecimal, "DECIMAL": KindDecimal,

	"FLOAT": KindFloat, "FLOAT4": KindFloat, "FLOAT8": KindFloat,
	"REAL": KindFloat, "DOUBLE": KindFloat, "DOUBLE PRECISION": KindFloat,

	"BOOL": KindBool, "BOOLEAN": KindBool,

	"DATE": KindDate,

	"DATETIME": KindDateTime, "TIMESTAMP": KindDateTime, "TIMESTAMPTZ": KindDateTime,
	"TIMESTAMP WITH TIME ZONE": KindDateTime, "TIMESTAMP WITHOUT TIME ZONE": KindDateTime,

	"UUID": KindUUID,

	"BYTEA": KindBytes, "BLOB": KindBytes, "TINYBLOB": KindBytes,
	"MEDIUMBLOB": KindBytes, "LONGBLOB": KindBytes,
	"BINARY": KindBytes, "VARBINARY": KindBytes,
}

// KindOf maps a driver-reported database type name to a Kind. Length and
// precision modifiers and the MySQL UNSIGNED qualifier are ignored; anything
// unrecognized is text.
func KindOf(dbType string) Kind {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimPrefix(t, "UNSIGNED ")
	t = strings.TrimSuffix(t, " UNSIGNED")
	if k, ok := kindsByType[t]; ok {
		return k
	}
	return KindText
}
