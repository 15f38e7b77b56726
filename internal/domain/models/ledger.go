package models

import (
	"math"
	"time"
)

// Ledger is the trade record: one row per bar on which a position is defined.
type Ledger struct {
	Index    Index
	Position []float64
	Price    []float64
	Volume   []float64 // first row is NaN
}

// LedgerRow is a single ledger entry.
type LedgerRow struct {
	Time     time.Time `json:"t"`
	Position float64   `json:"pos"`
	Price    Float     `json:"price"`
	Volume   Float     `json:"vol"`
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Index)
}

// Rows returns the ledger as a slice of rows.
func (l *Ledger) Rows() []LedgerRow {
	out := make([]LedgerRow, l.Len())
	for i := range out {
		out[i] = LedgerRow{Time: l.Index[i], Position: l.Position[i], Price: Float(l.Price[i]), Volume: Float(l.Volume[i])}
	}
	return out
}

// LedgerFromRows rebuilds a ledger from its rows.
func LedgerFromRows(rows []LedgerRow) *Ledger {
	l := &Ledger{
		Index:    make(Index, len(rows)),
		Position: make([]float64, len(rows)),
		Price:    make([]float64, len(rows)),
		Volume:   make([]float64, len(rows)),
	}
	for i, r := range rows {
		l.Index[i] = r.Time
		l.Position[i] = r.Position
		l.Price[i] = float64(r.Price)
		l.Volume[i] = float64(r.Volume)
	}
	return l
}

// Slice returns the rows inside [from, to]. Volumes are kept as computed on the full ledger.
func (l *Ledger) Slice(from, to time.Time) *Ledger {
	if l == nil {
		return &Ledger{}
	}
	lo, hi := l.Index.Bounds(from, to)
	return &Ledger{
		Index:    l.Index[lo:hi],
		Position: l.Position[lo:hi],
		Price:    l.Price[lo:hi],
		Volume:   l.Volume[lo:hi],
	}
}

// EventKind classifies a ledger row for trade markers.
type EventKind string

const (
	LongEnter  EventKind = "long_enter"
	ShortEnter EventKind = "short_enter"
	LongExit   EventKind = "long_exit"
	ShortExit  EventKind = "short_exit"
)

// TradeEvent marks an entry or exit at a given price.
type TradeEvent struct {
	Time  time.Time `json:"t"`
	Kind  EventKind `json:"kind"`
	Price Float     `json:"price"`
}

// Events lists entries and exits found in the ledger. A reversal row (e.g. long to short)
// yields both an exit and an entry. The first row counts as entered from flat.
func (l *Ledger) Events() []TradeEvent {
	var out []TradeEvent
	for i := 0; i < l.Len(); i++ {
		pos, prev, vol := l.Position[i], 0.0, l.Position[i]
		if i > 0 {
			prev, vol = l.Position[i-1], l.Volume[i]
		}
		if math.IsNaN(vol) || vol == 0 {
			continue
		}
		t, px := l.Index[i], Float(l.Price[i])
		switch {
		case vol < 0 && prev > 0:
			out = append(out, TradeEvent{Time: t, Kind: LongExit, Price: px})
		case vol > 0 && prev < 0:
			out = append(out, TradeEvent{Time: t, Kind: ShortExit, Price: px})
		}
		switch {
		case vol > 0 && pos > 0:
			out = append(out, TradeEvent{Time: t, Kind: LongEnter, Price: px})
		case vol < 0 && pos < 0:
			out = append(out, TradeEvent{Time: t, Kind: ShortEnter, Price: px})
		}
	}
	return out
}
