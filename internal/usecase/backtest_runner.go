package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
	"FinBack/internal/services/backtest"
	"FinBack/pkg/cache"
	applogger "FinBack/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

func resultKey(id string) string { return cache.GenerateKeyWithParams("backtest", "result", id) }

func lockKey(id string) string { return cache.GenerateKeyWithParams("backtest", "lock", id) }

// RunParams describes one backtest run. Bars are either inline or loaded by symbol.
type RunParams struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Timeframe string          `json:"tf,omitempty"`
	From      time.Time       `json:"from,omitzero"`
	To        time.Time       `json:"to,omitzero"`
	Bars      []models.Candle `json:"bars,omitempty"`

	Fields       map[string][]any `json:"fields"`
	SignalFields []string         `json:"signal_fields,omitempty"`
	PriceFields  []string         `json:"price_fields,omitempty"`

	ReportFrom time.Time `json:"report_from,omitzero"`
	ReportTo   time.Time `json:"report_to,omitzero"`

	Source string `json:"-"`
}

// RunnerConfig holds the tunables of BacktestRunner.
type RunnerConfig struct {
	ResultTTL     time.Duration
	LockTTL       time.Duration
	MaxBars       int
	SignalFields  []string
	PriceFields   []string
	PersistLedger bool
}

// BacktestRunner executes backtests and takes care of everything around the engine:
// loading bars, caching results, persisting the ledger and announcing the outcome.
// Candles, ledgers and publisher are optional.
type BacktestRunner struct {
	candles *CandlesUseCase
	ledgers domrepo.LedgerStore
	pub     domrepo.ResultPublisher
	cache   domrepo.ResultCache
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     RunnerConfig
	newID   func() string
}

func NewBacktestRunner(
	candles *CandlesUseCase,
	ledgers domrepo.LedgerStore,
	pub domrepo.ResultPublisher,
	cache domrepo.ResultCache,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg RunnerConfig,
) *BacktestRunner {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &BacktestRunner{
		candles: candles,
		ledgers: ledgers,
		pub:     pub,
		cache:   cache,
		metrics: metrics,
		l:       l.Named("backtest_runner"),
		cfg:     cfg,
		newID:   uuid.NewString,
	}
}

// Run executes a backtest. A run that reuses the id of a cached result returns that result,
// so redelivered requests are not computed twice.
func (r *BacktestRunner) Run(ctx context.Context, p RunParams) (*models.BacktestResult, error) {
	start := time.Now()
	if p.Source == "" {
		p.Source = SourceHTTP
	}
	if p.ID == "" {
		p.ID = r.newID()
	} else if _, err := uuid.Parse(p.ID); err != nil {
		return nil, fmt.Errorf("%w: id must be a uuid", ErrInvalidParams)
	}

	token, locked, err := r.cache.TryLock(ctx, lockKey(p.ID), r.cfg.LockTTL)
	if err != nil {
		r.l.Warn("acquire run lock", applogger.String("id", p.ID), applogger.Error(err))
	} else if !locked {
		return nil, ErrRunInProgress
	} else {
		defer func() {
			if err := r.cache.Unlock(context.WithoutCancel(ctx), lockKey(p.ID), token); err != nil {
				r.l.Warn("release run lock", applogger.String("id", p.ID), applogger.Error(err))
			}
		}()
	}

	var cached models.BacktestResult
	if err := r.cache.Get(ctx, resultKey(p.ID), &cached); err == nil {
		r.recordCache(true)
		r.l.Info("run already finished", applogger.String("id", p.ID))
		return &cached, nil
	}

	res, err := r.run(ctx, p)
	if err != nil {
		r.fail(ctx, p, err, time.Since(start))
		return nil, err
	}

	if err := r.cache.Set(ctx, resultKey(p.ID), res, r.cfg.ResultTTL); err != nil {
		r.l.Warn("cache result", applogger.String("id", p.ID), applogger.Error(err))
		r.recordError("cache")
	}
	if r.cfg.PersistLedger && r.ledgers != nil {
		if err := r.ledgers.SaveLedger(ctx, p.ID, models.LedgerFromRows(res.Trades)); err != nil {
			r.l.Warn("save ledger", applogger.String("id", p.ID), applogger.Error(err))
			r.recordError("ledger")
		}
	}
	r.publish(ctx, &res.Summary)

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordRun(p.Source, string(models.RunSucceeded), elapsed.Seconds())
		r.metrics.RecordLedgerRows(len(res.Trades))
	}
	r.l.Info("backtest finished",
		applogger.String("id", p.ID),
		applogger.String("name", res.Name),
		applogger.String("source", p.Source),
		applogger.Int("bars", res.Bars),
		applogger.Int("ledger_rows", len(res.Trades)),
		applogger.Float64("total", float64(res.Summary.Total)),
		applogger.Duration("took_ms", elapsed),
	)
	return res, nil
}

// Get returns a finished run. When the cached result has expired the run is rebuilt
// from its persisted ledger, without the positions of flat-before-entry bars.
func (r *BacktestRunner) Get(ctx context.Context, id string) (*models.BacktestResult, error) {
	var res models.BacktestResult
	err := r.cache.Get(ctx, resultKey(id), &res)
	if err == nil {
		r.recordCache(true)
		return &res, nil
	}
	r.recordCache(false)

	if r.ledgers == nil {
		return nil, ErrRunNotFound
	}
	l, err := r.ledgers.LoadLedger(ctx, id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	eq := backtest.LedgerToEquity(l)
	rebuilt := assemble(id, "", "", time.Time{}, 0, models.Series{Index: l.Index, Values: l.Position}, l, eq, time.Time{}, time.Time{})
	return rebuilt, nil
}

func (r *BacktestRunner) run(ctx context.Context, p RunParams) (*models.BacktestResult, error) {
	if len(p.Fields) == 0 {
		return nil, fmt.Errorf("%w: at least one signal field is required", ErrInvalidParams)
	}

	candles, err := r.loadBars(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no candles for %q", backtest.ErrBarsNotFound, p.Symbol)
	}
	if r.cfg.MaxBars > 0 && len(candles) > r.cfg.MaxBars {
		return nil, fmt.Errorf("%w: %d bars exceeds the limit of %d", ErrInvalidParams, len(candles), r.cfg.MaxBars)
	}
	bars, err := models.BarsFromCandles(candles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	data := map[string]any{"ohlc": bars}
	seen := make(map[string]string, len(p.Fields))
	for _, name := range slices.Sorted(maps.Keys(p.Fields)) {
		if lo.ContainsBy(models.BarsFieldCandidates, func(c string) bool { return strings.EqualFold(c, name) }) {
			return nil, fmt.Errorf("%w: field name %q is reserved for bars", ErrInvalidParams, name)
		}
		key := strings.ToLower(name)
		if other, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: fields %q and %q differ only in case", ErrInvalidParams, other, name)
		}
		seen[key] = name
		data[name] = models.RawSeries{Index: bars.Index, Values: p.Fields[name]}
	}

	opts := []backtest.Option{backtest.WithName(p.Name)}
	if f, ok := fieldNames(p.SignalFields, r.cfg.SignalFields); ok {
		opts = append(opts, backtest.WithSignalFields(f))
	}
	if f, ok := fieldNames(p.PriceFields, r.cfg.PriceFields); ok {
		opts = append(opts, backtest.WithPriceFields(f))
	}
	bt := backtest.New(data, opts...)

	pos, err := bt.Positions()
	if err != nil {
		return nil, err
	}
	trades, err := bt.Trades()
	if err != nil {
		return nil, err
	}
	eq, err := bt.Equity()
	if err != nil {
		return nil, err
	}

	r.l.Debug("backtest computed", applogger.String("id", p.ID), applogger.String("run", bt.String()))
	return assemble(p.ID, bt.Name(), p.Symbol, bt.RunTime(), bars.Len(), pos, trades, eq, p.ReportFrom, p.ReportTo), nil
}

func (r *BacktestRunner) loadBars(ctx context.Context, p RunParams) ([]models.Candle, error) {
	if len(p.Bars) > 0 {
		return p.Bars, nil
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: either bars or symbol is required", ErrInvalidParams)
	}
	res, err := r.candles.GetCandles(ctx, GetCandlesParams{
		Symbol:    p.Symbol,
		From:      p.From,
		To:        p.To,
		Timeframe: domrepo.Timeframe(p.Timeframe),
		Limit:     maxCandleLimit,
	})
	if err != nil {
		return nil, err
	}
	if res.Truncated {
		return nil, fmt.Errorf("%w: %s has more than %d candles in range, narrow from and to",
			ErrInvalidParams, p.Symbol, maxCandleLimit)
	}
	return res.Candles, nil
}

func (r *BacktestRunner) fail(ctx context.Context, p RunParams, err error, elapsed time.Duration) {
	kind := "internal"
	if IsInvalid(err) {
		kind = "invalid"
	}
	if r.metrics != nil {
		r.metrics.RecordRun(p.Source, string(models.RunFailed), elapsed.Seconds())
		r.metrics.RecordError(kind)
	}
	r.l.Warn("backtest failed",
		applogger.String("id", p.ID),
		applogger.String("source", p.Source),
		applogger.String("kind", kind),
		applogger.Error(err),
	)
	r.publish(ctx, &models.RunSummary{
		ID:      p.ID,
		Name:    p.Name,
		Symbol:  p.Symbol,
		Status:  models.RunFailed,
		Error:   err.Error(),
		RunTime: time.Now(),
	})
}

func (r *BacktestRunner) publish(ctx context.Context, s *models.RunSummary) {
	if r.pub == nil {
		return
	}
	if err := r.pub.PublishResult(ctx, s); err != nil {
		r.l.Warn("publish result", applogger.String("id", s.ID), applogger.Error(err))
		r.recordError("publish")
	}
}

func (r *BacktestRunner) recordCache(hit bool) {
	if r.metrics != nil {
		r.metrics.RecordCacheLookup(hit)
	}
}

func (r *BacktestRunner) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

// fieldNames picks the request override, then the configured names.
func fieldNames(req, cfg []string) (models.Fields, bool) {
	var f models.Fields
	switch {
	case len(req) == len(f):
		copy(f[:], req)
	case len(cfg) == len(f):
		copy(f[:], cfg)
	default:
		return f, false
	}
	return f, true
}

func assemble(id, name, symbol string, runTime time.Time, nbars int, pos models.Series, trades *models.Ledger, eq models.Series, from, to time.Time) *models.BacktestResult {
	events := trades.Events()
	entries := lo.CountBy(events, func(e models.TradeEvent) bool {
		return e.Kind == models.LongEnter || e.Kind == models.ShortEnter
	})
	inRange := trades.Slice(from, to)
	var rangeEvents int
	if n := inRange.Len(); n > 0 {
		first, last := inRange.Index[0], inRange.Index[n-1]
		rangeEvents = lo.CountBy(events, func(e models.TradeEvent) bool {
			return !e.Time.Before(first) && !e.Time.After(last)
		})
	}
	return &models.BacktestResult{
		ID:        id,
		Name:      name,
		Symbol:    symbol,
		RunTime:   runTime,
		Bars:      nbars,
		Positions: pos.Points(),
		Trades:    trades.Rows(),
		Equity:    eq.Points(),
		Curve:     backtest.Cumulative(eq).Points(),
		Events:    events,
		Summary: models.RunSummary{
			ID:         id,
			Name:       name,
			Symbol:     symbol,
			Status:     models.RunSucceeded,
			RunTime:    runTime,
			Bars:       nbars,
			LedgerRows: trades.Len(),
			Entries:    entries,
			Exits:      len(events) - entries,
			Total:      models.Float(backtest.RangeSum(eq, time.Time{}, time.Time{})),
			RangeFrom:  from,
			RangeTo:    to,
			RangeTotal: models.Float(backtest.RangeSum(eq, from, to)),

			RangeRows:   inRange.Len(),
			RangeEvents: rangeEvents,
		},
	}
}
