package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
	applogger "FinBack/pkg/logger"
)

// CandleSchema returns the DDL of the candle table.
func CandleSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles (
			symbol LowCardinality(String),
			tf LowCardinality(String),
			bucket DateTime64(3, 'UTC'),
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			vol Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, tf, bucket)`, database),
	}
}

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(db *sql.DB, database string, l *applogger.Logger) *CHCandleStore {
	return &CHCandleStore{db: db, table: database + ".candles", l: l.Named("candle_store")}
}

const candlesQuery = `
	SELECT bucket, symbol, open, high, low, close, vol
	FROM %s FINAL
	WHERE symbol = ? AND tf = ? AND bucket >= ? AND bucket <= ?
	ORDER BY bucket ASC
`

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	fields := []applogger.Field{
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(candlesQuery, s.table), symbol, string(tf), from, to)
	if err != nil {
		s.l.Error("get_candles query error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.l.Error("get_candles scan error", append(fields, applogger.Error(err))...)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("get_candles rows error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("get_candles ok", append(fields,
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)...)
	return out, nil
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
