package nest

import (
	"reflect"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/shopspring/decimal"

	"github.com/pthm/nestdump/pkg/schema"
)

type (
	decimalKey string
	bytesKey   string
	timeKey    struct {
		sec  int64
		nsec int
	}
)

// joinKey maps a column value to a comparable map key. Values that can never
// take part in an equality join (nil, non-comparable types) report false.
// No coercion happens between Go types: int64(1) and float64(1) differ.
func joinKey(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case decimal.Decimal:
		return decimalKey(x.String()), true
	case time.Time:
		return timeKey{sec: x.Unix(), nsec: x.Nanosecond()}, true
	case []byte:
		return bytesKey(x), true
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

// columnIndex maps join keys to the positions of the rows holding them.
// Bitmaps iterate in ascending order, so matches keep source row order.
type columnIndex struct {
	postings map[any]*roaring.Bitmap
}

func buildColumnIndex(rows []schema.Row, col int) *columnIndex {
	idx := &columnIndex{postings: make(map[any]*roaring.Bitmap)}
	for i, row := range rows {
		if col >= len(row) {
			continue
		}
		k, ok := joinKey(row[col])
		if !ok {
			continue
		}
		bm, exists := idx.postings[k]
		if !exists {
			bm = roaring.New()
			idx.postings[k] = bm
		}
		bm.Add(uint32(i))
	}
	return idx
}

// match returns the row positions whose column equals v.
func (idx *columnIndex) match(v any) []uint32 {
	k, ok := joinKey(v)
	if !ok {
		return nil
	}
	bm, ok := idx.postings[k]
	if !ok {
		return nil
	}
	return bm.ToArray()
}
