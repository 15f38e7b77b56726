package models

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Float is a float64 that encodes NaN as JSON null and decodes null back to NaN.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// IsNaN reports whether the value is missing.
func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

// Point is one timestamped value of a Series.
type Point struct {
	Time  time.Time `json:"t"`
	Value Float     `json:"v"`
}

// Points flattens a Series for transport.
func (s Series) Points() []Point {
	out := make([]Point, s.Len())
	for i := range out {
		out[i] = Point{Time: s.Index[i], Value: Float(s.Values[i])}
	}
	return out
}
