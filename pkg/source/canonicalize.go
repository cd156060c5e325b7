package source

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pthm/nestdump/pkg/schema"
)

// Layouts tried, in order, when a date or datetime arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Canonicalize converts a value as returned by a database driver into the
// canonical Go type for kind. Drivers disagree on representation (MySQL
// returns most values as []byte, pgx returns NUMERIC as text, SQLite has no
// date type), so the conversion is keyed on the column kind, not the value.
//
// nil stays nil. Values of a type the kind does not expect are returned
// unchanged.
func Canonicalize(kind schema.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch kind {
	case schema.KindText:
		return toText(v), nil
	case schema.KindInt:
		return toInt(v)
	case schema.KindFloat:
		return toFloat(v)
	case schema.KindBool:
		return toBool(v)
	case schema.KindDecimal:
		return toDecimal(v)
	case schema.KindDate, schema.KindDateTime:
		return toTime(kind, v)
	case schema.KindUUID:
		return toUUID(v)
	default:
		return v, nil
	}
}

func convertErr(v any, kind schema.Kind, err error) error {
	return fmt.Errorf("%w: %v (%T) to %s: %v", ErrCanonicalize, v, v, kind, err)
}

// text returns the textual form of string and []byte values.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

func toText(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
		}
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	if s, ok := text(v); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err == nil {
			return n, nil
		}
		// BIGINT UNSIGNED beyond int64 range.
		d, derr := decimal.NewFromString(strings.TrimSpace(s))
		if derr != nil {
			return nil, convertErr(v, schema.KindInt, err)
		}
		return d, nil
	}
	return v, nil
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	if s, ok := text(v); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, convertErr(v, schema.KindFloat, err)
		}
		return f, nil
	}
	return v, nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	}
	if s, ok := text(v); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, convertErr(v, schema.KindBool, err)
		}
		return b, nil
	}
	return v, nil
}

func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return x, nil
		}
		return decimal.NewFromFloat(x), nil
	}
	if s, ok := text(v); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, convertErr(v, schema.KindDecimal, err)
		}
		return d, nil
	}
	return v, nil
}

func toTime(kind schema.Kind, v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s, ok := text(v)
	if !ok {
		return v, nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, convertErr(v, kind, errors.New("no matching layout"))
}

func toUUID(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
	}
	if s, ok := text(v); ok {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, convertErr(v, schema.KindUUID, err)
		}
		return id, nil
	}
	return v, nil
}
