package backtest

import (
	"math"

	"FinBack/internal/domain/models"
)

// DefaultPrices returns the next bar's open for every bar. The last bar has none (NaN).
func DefaultPrices(bars *models.Bars) models.Series {
	return bars.OpenSeries().Shift(-1)
}

// ResolvePrices picks the execution price of every bar. An explicit price paired with a
// true signal wins, the first such pair in buy, sell, short, cover order taking the bar;
// all other bars fall back to def. With no price frame at all def is returned as is.
func ResolvePrices(prices *models.Frame[float64], signals *models.Frame[bool], def models.Series) (models.Series, error) {
	if prices == nil {
		return def, nil
	}
	if signals == nil {
		return models.Series{}, ErrNoSignals
	}
	if !prices.Index.Equal(def.Index) || !signals.Index.Equal(def.Index) {
		return models.Series{}, ErrIndexMismatch
	}

	out := models.NewSeries(def.Index)
	assigned := make([]bool, len(out.Values))
	for k := range models.SignalColumns {
		sig := signals.Column(models.SignalColumns[k])
		px := prices.Column(models.PriceColumns[k])
		for i := range out.Values {
			if assigned[i] || !sig[i] || math.IsNaN(px[i]) {
				continue
			}
			out.Values[i] = px[i]
			assigned[i] = true
		}
	}
	for i := range out.Values {
		if !assigned[i] {
			out.Values[i] = def.Values[i]
		}
	}
	return out, nil
}
