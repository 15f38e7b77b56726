package models

import (
	"testing"
	"time"
)

func TestNewDataObjIgnoresMapOrder(t *testing.T) {
	in := map[string]any{"BUY": 1, "Buy": 2, "buy": 3, "Sell": 4}
	for i := 0; i < 50; i++ {
		d := NewDataObj(in)
		if len(d) != 2 || d["buy"] != 3 || d["sell"] != 4 {
			t.Fatalf("unexpected data %v", d)
		}
	}
	if v, ok := NewDataObj(in).Lookup("SELL"); !ok || v != 4 {
		t.Fatalf("lookup ignoring case failed: %v %v", v, ok)
	}
}

func TestLedgerSlice(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ix := Index{start, start.Add(time.Hour), start.Add(2 * time.Hour), start.Add(3 * time.Hour)}
	l := &Ledger{
		Index:    ix,
		Position: []float64{1, 1, 0, -1},
		Price:    []float64{10, 10, 12, 13},
		Volume:   []float64{0, 0, -1, -1},
	}

	tests := []struct {
		name     string
		from, to time.Time
		want     int
		first    float64
	}{
		{"open range", time.Time{}, time.Time{}, 4, 10},
		{"from only", ix[2], time.Time{}, 2, 12},
		{"inclusive bounds", ix[1], ix[2], 2, 10},
		{"between bars", ix[0].Add(time.Minute), ix[1].Add(time.Minute), 1, 10},
		{"after the end", ix[3].Add(time.Hour), time.Time{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Slice(tt.from, tt.to)
			if got.Len() != tt.want {
				t.Fatalf("expected %d rows, got %d", tt.want, got.Len())
			}
			if got.Len() > 0 && got.Price[0] != tt.first {
				t.Fatalf("first price %v, want %v", got.Price[0], tt.first)
			}
		})
	}

	var empty *Ledger
	if empty.Slice(ix[0], ix[1]).Len() != 0 {
		t.Fatalf("nil ledger should slice to nothing")
	}
}
