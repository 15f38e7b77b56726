package backtest

import (
	"math"

	"FinBack/internal/domain/models"
)

type positionState int

const (
	stateUndefined positionState = iota // nothing traded yet
	stateFlat
	stateLong
	stateShort
)

func (s positionState) value() float64 {
	switch s {
	case stateLong:
		return 1
	case stateShort:
		return -1
	case stateFlat:
		return 0
	default:
		return math.NaN()
	}
}

type barSignals struct {
	buy, sell, short, cover bool
}

// next applies one bar of signals in the order Cover, Buy, Sell, Short.
// Every guard sees the state left by the previous one, so a same-bar Cover and Buy
// nets into a single short-to-long move.
func (s positionState) next(sig barSignals) positionState {
	if sig.cover && s == stateShort {
		s = stateFlat
	}
	if sig.buy && s != stateLong {
		s = stateLong
	}
	if sig.sell && s == stateLong {
		s = stateFlat
	}
	if sig.short && s != stateShort {
		s = stateShort
	}
	return s
}

// SignalsToPositions scans the signal frame left to right and returns the held position
// per bar: +1 long, -1 short, 0 flat, NaN before the first transition.
func SignalsToPositions(signals *models.Frame[bool]) (models.Series, error) {
	if signals == nil {
		return models.Series{}, ErrNoSignals
	}
	buy := signals.Column(models.SignalColumns[0])
	sell := signals.Column(models.SignalColumns[1])
	short := signals.Column(models.SignalColumns[2])
	cover := signals.Column(models.SignalColumns[3])

	out := models.NewSeries(signals.Index)
	state := stateUndefined
	for i := range out.Values {
		state = state.next(barSignals{buy: buy[i], sell: sell[i], short: short[i], cover: cover[i]})
		out.Values[i] = state.value()
	}
	return out, nil
}
