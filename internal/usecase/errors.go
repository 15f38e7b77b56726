package usecase

import (
	"errors"

	"FinBack/internal/services/backtest"
)

var (
	// ErrInvalidParams wraps request problems the caller has to fix.
	ErrInvalidParams = errors.New("invalid parameters")
	ErrRunNotFound   = errors.New("backtest run not found")
	ErrRunInProgress = errors.New("backtest run already in progress")
)

// IsInvalid reports whether err comes from bad input rather than from infrastructure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, backtest.ErrBarsNotFound) ||
		errors.Is(err, backtest.ErrTypeMismatch) ||
		errors.Is(err, backtest.ErrIndexMismatch) ||
		errors.Is(err, backtest.ErrNoSignals)
}
