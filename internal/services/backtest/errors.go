package backtest

import "errors"

var (
	// ErrBarsNotFound means none of the bars candidate fields is present in the data.
	ErrBarsNotFound = errors.New("backtest: bars table not found in data")
	// ErrTypeMismatch means a matched field cannot be coerced to the expected element kind.
	ErrTypeMismatch = errors.New("backtest: type mismatch")
	// ErrIndexMismatch means two series that must share an index do not.
	ErrIndexMismatch = errors.New("backtest: index mismatch")
	// ErrNoSignals means no signal field matched, so positions cannot be derived.
	ErrNoSignals = errors.New("backtest: no signal fields found")
)
