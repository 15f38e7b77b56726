package models

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV record as stored in the candle tables.
type Candle struct {
	Bucket time.Time `json:"t"`
	Symbol string    `json:"symbol,omitempty"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// Bars is the column oriented OHLCV table of the backtested instrument.
type Bars struct {
	Index  Index
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// BarsFromCandles converts time ordered candles into a Bars table.
func BarsFromCandles(candles []Candle) (*Bars, error) {
	b := &Bars{
		Index:  make(Index, len(candles)),
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		if i > 0 && !c.Bucket.After(candles[i-1].Bucket) {
			return nil, fmt.Errorf("candle %d at %s is not after %s", i, c.Bucket.Format(time.RFC3339), candles[i-1].Bucket.Format(time.RFC3339))
		}
		b.Index[i] = c.Bucket
		b.Open[i] = c.Open
		b.High[i] = c.High
		b.Low[i] = c.Low
		b.Close[i] = c.Close
		b.Volume[i] = c.Volume
	}
	return b, nil
}

// Len returns the number of bars.
func (b *Bars) Len() int { return len(b.Index) }

// OpenSeries returns the open prices as a Series.
func (b *Bars) OpenSeries() Series { return Series{Index: b.Index, Values: b.Open} }
