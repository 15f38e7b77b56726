package backtest

import (
	"math"
	"testing"
	"time"

	"FinBack/internal/domain/models"
)

func testIndex(n int) models.Index {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ix := make(models.Index, n)
	for i := range ix {
		ix[i] = start.Add(time.Duration(i) * 24 * time.Hour)
	}
	return ix
}

// flags turns "TFFT" into a bool slice.
func flags(s string) []bool {
	out := make([]bool, len(s))
	for i, c := range s {
		out[i] = c == 'T'
	}
	return out
}

func signalFrame(ix models.Index, buy, sell, short, cover string) *models.Frame[bool] {
	return &models.Frame[bool]{
		Index: ix,
		Names: models.SignalColumns[:],
		Columns: map[string][]bool{
			"Buy":   flags(buy),
			"Sell":  flags(sell),
			"Short": flags(short),
			"Cover": flags(cover),
		},
	}
}

func testBars(ix models.Index, open []float64) *models.Bars {
	return &models.Bars{
		Index:  ix,
		Open:   open,
		High:   open,
		Low:    open,
		Close:  open,
		Volume: make([]float64, len(open)),
	}
}

// sameFloats compares with NaN == NaN.
func sameFloats(t *testing.T, what string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len %d, want %d (%v)", what, len(got), len(want), got)
	}
	for i := range want {
		if math.IsNaN(want[i]) && math.IsNaN(got[i]) {
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("%s[%d] = %v, want %v (all %v)", what, i, got[i], want[i], got)
		}
	}
}

var nan = math.NaN()
