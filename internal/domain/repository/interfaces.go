package repository

import (
	"context"
	"errors"
	"time"

	"FinBack/internal/domain/models"
)

// ErrNotFound is returned by stores when nothing matches the request.
var ErrNotFound = errors.New("not found")

// CandleStore provides read-only access to stored candles.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
}

// LedgerStore persists the trade ledger of finished runs.
type LedgerStore interface {
	SaveLedger(ctx context.Context, runID string, l *models.Ledger) error
	LoadLedger(ctx context.Context, runID string) (*models.Ledger, error)
}

// ResultPublisher announces finished runs to downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, s *models.RunSummary) error
	Close() error
}

// ResultCache keeps finished results for a while and serializes runs sharing an id.
type ResultCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type Metrics interface {
	RecordRun(source, result string, seconds float64)
	RecordLedgerRows(n int)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
}
