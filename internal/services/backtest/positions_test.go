package backtest

import (
	"errors"
	"testing"
)

func TestSignalsToPositions(t *testing.T) {
	tests := []struct {
		name                    string
		buy, sell, short, cover string
		want                    []float64
	}{
		{
			name: "buy then sell",
			buy:  "TFFF", sell: "FFTF", short: "FFFF", cover: "FFFF",
			want: []float64{1, 1, 0, 0},
		},
		{
			name: "undefined before first signal",
			buy:  "FFTF", sell: "FFFF", short: "FFFF", cover: "FFFF",
			want: []float64{nan, nan, 1, 1},
		},
		{
			name: "exit before any entry is ignored",
			buy:  "FFTF", sell: "TFFF", short: "FFFF", cover: "FTFF",
			want: []float64{nan, nan, 1, 1},
		},
		{
			name: "repeated buy while long",
			buy:  "TTTF", sell: "FFFT", short: "FFFF", cover: "FFFF",
			want: []float64{1, 1, 1, 0},
		},
		{
			name: "short then cover",
			buy:  "FFFF", sell: "FFFF", short: "TFFF", cover: "FFTF",
			want: []float64{-1, -1, 0, 0},
		},
		{
			name: "cover and buy on one bar reverse",
			buy:  "FFTF", sell: "FFFF", short: "TFFF", cover: "FFTF",
			want: []float64{-1, -1, 1, 1},
		},
		{
			name: "short reverses a long without sell",
			buy:  "TFFF", sell: "FFFF", short: "FFTF", cover: "FFFF",
			want: []float64{1, 1, -1, -1},
		},
		{
			name: "buy and short on one bar end short",
			buy:  "FTFF", sell: "FFFF", short: "FTFF", cover: "FFFF",
			want: []float64{nan, -1, -1, -1},
		},
		{
			name: "buy and sell on one bar end flat",
			buy:  "FTFF", sell: "FTFF", short: "FFFF", cover: "FFFF",
			want: []float64{nan, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := signalFrame(testIndex(4), tt.buy, tt.sell, tt.short, tt.cover)
			got, err := SignalsToPositions(fr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sameFloats(t, "positions", got.Values, tt.want)
		})
	}
}

func TestSignalsToPositionsNoSignals(t *testing.T) {
	if _, err := SignalsToPositions(nil); !errors.Is(err, ErrNoSignals) {
		t.Fatalf("expected ErrNoSignals, got %v", err)
	}
}

func TestPositionChangesOnlyOnSignalBars(t *testing.T) {
	fr := signalFrame(testIndex(8), "TFFFFTFF", "FFFTFFFF", "FFFFFFTF", "FFFFFFFF")
	got, err := SignalsToPositions(fr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fired := func(i int) bool {
		return fr.Columns["Buy"][i] || fr.Columns["Sell"][i] || fr.Columns["Short"][i] || fr.Columns["Cover"][i]
	}
	for i := 1; i < got.Len(); i++ {
		if got.Values[i] != got.Values[i-1] && !fired(i) {
			t.Fatalf("position changed at bar %d without a signal: %v", i, got.Values)
		}
	}
}
