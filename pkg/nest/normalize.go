package nest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pthm/nestdump/pkg/schema"
)

// Object is one rendered row: columns in table order followed by child
// collections in attach order.
type Object = orderedmap.OrderedMap[string, any]

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.999999Z07:00"
)

// Normalize maps a column value to a JSON-native value.
//
// Dates render as YYYY-MM-DD and other times as RFC 3339 with up to
// microsecond precision. Decimals become the nearest float64, which is lossy
// for values that need more than 15-17 significant digits. Byte strings,
// non-finite floats and unknown types are rejected with an
// *UnserializableValueError naming the column and type.
func Normalize(col schema.Column, v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, unserializable(col, fmt.Sprintf("float64 %v", x))
		}
		return x, nil
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, unserializable(col, fmt.Sprintf("float32 %v", x))
		}
		return f, nil
	case time.Time:
		if col.Kind == schema.KindDate {
			return x.Format(dateLayout), nil
		}
		return x.Format(dateTimeLayout), nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case uuid.UUID:
		return x.String(), nil
	default:
		return nil, unserializable(col, fmt.Sprintf("%T", v))
	}
}

func unserializable(col schema.Column, typ string) *UnserializableValueError {
	return &UnserializableValueError{Column: col.Name, Type: typ}
}

// Object renders the node and its subtree with every value normalized.
func (n *Node) Object() (*Object, error) {
	obj := orderedmap.New[string, any]()
	for i, col := range n.Table.Columns {
		var v any
		if i < len(n.Row) {
			v = n.Row[i]
		}
		nv, err := Normalize(col, v)
		if err != nil {
			var uv *UnserializableValueError
			if errors.As(err, &uv) {
				uv.Table = n.Table.Name
			}
			return nil, err
		}
		obj.Set(col.Name, nv)
	}
	for _, c := range n.children {
		list, err := renderNodes(c.Nodes)
		if err != nil {
			return nil, err
		}
		obj.Set(c.Table, list)
	}
	return obj, nil
}

// Document renders the whole tree as an ordered object keyed by root table.
// The first value that cannot be normalized aborts rendering.
func (t *Tree) Document() (*Object, error) {
	doc := orderedmap.New[string, any]()
	for _, r := range t.Roots {
		list, err := renderNodes(r.Nodes)
		if err != nil {
			return nil, err
		}
		doc.Set(r.Table, list)
	}
	return doc, nil
}

func renderNodes(nodes []*Node) ([]any, error) {
	list := make([]any, 0, len(nodes))
	for _, n := range nodes {
		obj, err := n.Object()
		if err != nil {
			return nil, err
		}
		list = append(list, obj)
	}
	return list, nil
}
