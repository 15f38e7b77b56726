package backtest

import (
	"math"

	"FinBack/internal/domain/models"

	"github.com/samber/lo"
)

// BuildLedger joins positions and execution prices, drops bars without a defined
// position and derives volume as the change in position between surviving rows.
func BuildLedger(positions, prices models.Series) (*models.Ledger, error) {
	if !positions.Index.Equal(prices.Index) {
		return nil, ErrIndexMismatch
	}
	keep := lo.Filter(lo.Range(positions.Len()), func(i int, _ int) bool {
		return !math.IsNaN(positions.Values[i])
	})

	l := &models.Ledger{
		Index:    make(models.Index, len(keep)),
		Position: make([]float64, len(keep)),
		Price:    make([]float64, len(keep)),
		Volume:   make([]float64, len(keep)),
	}
	for j, i := range keep {
		l.Index[j] = positions.Index[i]
		l.Position[j] = positions.Values[i]
		l.Price[j] = prices.Values[i]
		if j == 0 {
			l.Volume[j] = math.NaN()
			continue
		}
		l.Volume[j] = l.Position[j] - l.Position[j-1]
	}
	return l, nil
}
