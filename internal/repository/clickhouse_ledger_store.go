package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
	applogger "FinBack/pkg/logger"

	"github.com/shopspring/decimal"
)

// LedgerSchema returns the DDL of the ledger table. Prices are exact decimals so that
// downstream accounting does not inherit float rounding.
func LedgerSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_ledger (
			run_id String,
			t DateTime64(3, 'UTC'),
			position Int8,
			price Nullable(Decimal(38, 10)),
			volume Nullable(Decimal(38, 10))
		) ENGINE = MergeTree ORDER BY (run_id, t)`, database),
	}
}

// CHLedgerStore implements LedgerStore backed by ClickHouse.
type CHLedgerStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHLedgerStore(db *sql.DB, database string, l *applogger.Logger) *CHLedgerStore {
	return &CHLedgerStore{db: db, table: database + ".backtest_ledger", l: l.Named("ledger_store")}
}

// SaveLedger writes all rows of l in one batch.
func (s *CHLedgerStore) SaveLedger(ctx context.Context, runID string, l *models.Ledger) error {
	if l.Len() == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (run_id, t, position, price, volume)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare ledger batch: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < l.Len(); i++ {
		if _, err := stmt.ExecContext(ctx,
			runID,
			l.Index[i],
			int8(l.Position[i]),
			toDecimal(l.Price[i]),
			toDecimal(l.Volume[i]),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append ledger row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("save_ledger commit error", applogger.String("run_id", runID), applogger.Error(err))
		return fmt.Errorf("commit ledger batch: %w", err)
	}

	s.l.Debug("save_ledger ok",
		applogger.String("run_id", runID),
		applogger.Int("rows", l.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// LoadLedger reads the ledger of a run back in time order.
func (s *CHLedgerStore) LoadLedger(ctx context.Context, runID string) (*models.Ledger, error) {
	q := fmt.Sprintf("SELECT t, position, price, volume FROM %s WHERE run_id = ? ORDER BY t ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerRow
	for rows.Next() {
		var (
			t          time.Time
			pos        int8
			price, vol *decimal.Decimal
		)
		if err := rows.Scan(&t, &pos, &price, &vol); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, models.LedgerRow{
			Time:     t,
			Position: float64(pos),
			Price:    models.Float(fromDecimal(price)),
			Volume:   models.Float(fromDecimal(vol)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ledger %s: %w", runID, domrepo.ErrNotFound)
	}
	return models.LedgerFromRows(out), nil
}

// toDecimal maps NaN to NULL.
func toDecimal(v float64) *decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	d := decimal.NewFromFloat(v)
	return &d
}

func fromDecimal(d *decimal.Decimal) float64 {
	if d == nil {
		return math.NaN()
	}
	return d.InexactFloat64()
}

var _ domrepo.LedgerStore = (*CHLedgerStore)(nil)
