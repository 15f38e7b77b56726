package backtest

import (
	"math"
	"time"

	"FinBack/internal/domain/models"

	"gonum.org/v1/gonum/floats"
)

// LedgerToEquity returns each ledger row's profit: the position held since the previous
// row times the price move since the last known price. The first row contributes 0, as
// does a row without a price, which also leaves the mark untouched.
func LedgerToEquity(l *models.Ledger) models.Series {
	out := models.Series{Index: l.Index, Values: make([]float64, l.Len())}
	mark := math.NaN()
	for i := 0; i < l.Len(); i++ {
		px := l.Price[i]
		if math.IsNaN(px) {
			continue
		}
		if i > 0 && !math.IsNaN(mark) {
			out.Values[i] = l.Position[i-1] * (px - mark)
		}
		mark = px
	}
	return out
}

// Cumulative turns per-row equity into the equity curve.
func Cumulative(equity models.Series) models.Series {
	out := models.Series{Index: equity.Index, Values: make([]float64, equity.Len())}
	if equity.Len() > 0 {
		floats.CumSum(out.Values, equity.Values)
	}
	return out
}

// RangeSum is the equity earned over [from, to]; a zero bound leaves that side open.
func RangeSum(equity models.Series, from, to time.Time) float64 {
	return floats.Sum(equity.Slice(from, to).Values)
}
