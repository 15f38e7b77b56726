package backtest

import (
	"testing"

	"FinBack/internal/domain/models"
)

func priceFrame(ix models.Index, cols map[string][]float64) *models.Frame[float64] {
	fr := &models.Frame[float64]{Index: ix, Names: models.PriceColumns[:], Columns: map[string][]float64{}}
	for _, name := range models.PriceColumns {
		col, ok := cols[name]
		if !ok {
			col = make([]float64, len(ix))
			for i := range col {
				col[i] = nan
			}
		}
		fr.Columns[name] = col
	}
	return fr
}

func TestDefaultPricesIsNextOpen(t *testing.T) {
	ix := testIndex(4)
	got := DefaultPrices(testBars(ix, []float64{9, 10, 11, 12}))
	sameFloats(t, "default", got.Values, []float64{10, 11, 12, nan})
}

func TestResolvePricesAbsentUsesDefault(t *testing.T) {
	ix := testIndex(4)
	def := models.Series{Index: ix, Values: []float64{10, 11, 12, 13}}
	got, err := ResolvePrices(nil, signalFrame(ix, "TFFF", "FFTF", "FFFF", "FFFF"), def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sameFloats(t, "resolved", got.Values, def.Values)
}

func TestResolvePrices(t *testing.T) {
	ix := testIndex(4)
	def := models.Series{Index: ix, Values: []float64{10, 11, 12, 13}}

	tests := []struct {
		name    string
		signals *models.Frame[bool]
		prices  map[string][]float64
		want    []float64
	}{
		{
			name:    "explicit buy price wins",
			signals: signalFrame(ix, "FTFF", "FFFF", "FFFF", "FFFF"),
			prices:  map[string][]float64{"BuyPrice": {nan, 9.5, nan, nan}},
			want:    []float64{10, 9.5, 12, 13},
		},
		{
			name:    "price without signal is ignored",
			signals: signalFrame(ix, "FFFF", "FFFF", "FFFF", "FFFF"),
			prices:  map[string][]float64{"BuyPrice": {1, 2, 3, 4}},
			want:    []float64{10, 11, 12, 13},
		},
		{
			name:    "signal with missing price falls back",
			signals: signalFrame(ix, "TFFF", "FFTF", "FFFF", "FFFF"),
			prices:  map[string][]float64{"SellPrice": {nan, nan, nan, 7}},
			want:    []float64{10, 11, 12, 13},
		},
		{
			name:    "first pair wins on overlap",
			signals: signalFrame(ix, "FFFF", "FFTF", "FFTF", "FFFF"),
			prices: map[string][]float64{
				"SellPrice":  {nan, nan, 20, nan},
				"ShortPrice": {nan, nan, 30, nan},
			},
			want: []float64{10, 11, 20, 13},
		},
		{
			name:    "later pair fills when earlier price is missing",
			signals: signalFrame(ix, "FFFF", "FFTF", "FFTF", "FFFF"),
			prices:  map[string][]float64{"ShortPrice": {nan, nan, 30, nan}},
			want:    []float64{10, 11, 30, 13},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePrices(priceFrame(ix, tt.prices), tt.signals, def)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sameFloats(t, "resolved", got.Values, tt.want)
		})
	}
}
