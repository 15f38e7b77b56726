package models

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

// Index is an ordered, strictly increasing sequence of bar timestamps.
type Index []time.Time

// Equal reports whether both indices hold the same timestamps in the same order.
func (ix Index) Equal(other Index) bool {
	if len(ix) != len(other) {
		return false
	}
	for i := range ix {
		if !ix[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Bounds returns the positions [lo, hi) of timestamps falling inside [from, to].
// A zero from or to leaves that side open.
func (ix Index) Bounds(from, to time.Time) (int, int) {
	lo, hi := 0, len(ix)
	if !from.IsZero() {
		for lo < hi && ix[lo].Before(from) {
			lo++
		}
	}
	if !to.IsZero() {
		for hi > lo && ix[hi-1].After(to) {
			hi--
		}
	}
	return lo, hi
}

// RawSeries is a caller supplied series whose element type is not yet known.
// Values holds one of []bool, []float64, []float32, []int, []int64, []string or []any.
type RawSeries struct {
	Index  Index
	Values any
}

// DataObj maps lowercase field names to raw series or bar tables.
type DataObj map[string]any

// NewDataObj copies m and lowercases every key. Keys equal ignoring case resolve
// to the one sorting last, so the result does not depend on map order.
func NewDataObj(m map[string]any) DataObj {
	out := make(DataObj, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out[strings.ToLower(k)] = m[k]
	}
	return out
}

// Lookup finds a field ignoring case.
func (d DataObj) Lookup(name string) (any, bool) {
	v, ok := d[strings.ToLower(name)]
	return v, ok
}

// Series is a float series over an Index. NaN marks a missing or undefined value.
type Series struct {
	Index  Index
	Values []float64
}

// NewSeries allocates a series over ix filled with NaN.
func NewSeries(ix Index) Series {
	vals := make([]float64, len(ix))
	for i := range vals {
		vals[i] = math.NaN()
	}
	return Series{Index: ix, Values: vals}
}

// Len returns the number of rows.
func (s Series) Len() int { return len(s.Values) }

// Slice returns the rows whose timestamps fall inside [from, to].
func (s Series) Slice(from, to time.Time) Series {
	lo, hi := s.Index.Bounds(from, to)
	return Series{Index: s.Index[lo:hi], Values: s.Values[lo:hi]}
}

// Shift moves values by n positions; negative n pulls later values back.
// Vacated slots become NaN.
func (s Series) Shift(n int) Series {
	out := NewSeries(s.Index)
	for i := range s.Values {
		j := i - n
		if j >= 0 && j < len(s.Values) {
			out.Values[i] = s.Values[j]
		}
	}
	return out
}

// Frame is a table of equally typed columns over one Index.
// Names keeps the canonical column order.
type Frame[T any] struct {
	Index   Index
	Names   []string
	Columns map[string][]T
}

// Column returns the named column, or nil when it does not exist.
func (f *Frame[T]) Column(name string) []T {
	if f == nil {
		return nil
	}
	return f.Columns[name]
}

// Len returns the number of rows.
func (f *Frame[T]) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Fields is an ordered 4-tuple of field names: buy, sell, short, cover.
type Fields [4]string

var (
	DefaultSignalFields = Fields{"buy", "sell", "short", "cover"}
	DefaultPriceFields  = Fields{"buyprice", "sellprice", "shortprice", "coverprice"}

	// Canonical column names used inside the engine.
	SignalColumns = Fields{"Buy", "Sell", "Short", "Cover"}
	PriceColumns  = Fields{"BuyPrice", "SellPrice", "ShortPrice", "CoverPrice"}

	// BarsFieldCandidates are the names a bars table may be supplied under, first match wins.
	BarsFieldCandidates = []string{"ohlc", "bars", "ohlcv"}
)
