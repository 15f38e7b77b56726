package backtest

import (
	"fmt"
	"sync"
	"time"

	"FinBack/internal/domain/models"
)

// Option configures a Backtest.
type Option func(*Backtest)

// WithName sets the strategy name used in String.
func WithName(name string) Option {
	return func(b *Backtest) {
		if name != "" {
			b.name = name
		}
	}
}

// WithSignalFields overrides the external buy, sell, short, cover field names.
func WithSignalFields(f models.Fields) Option {
	return func(b *Backtest) {
		b.signalFields = f
	}
}

// WithPriceFields overrides the external buyprice, sellprice, shortprice, coverprice field names.
func WithPriceFields(f models.Fields) Option {
	return func(b *Backtest) {
		b.priceFields = f
	}
}

// WithBarsFields overrides the names the bars table is looked up under.
func WithBarsFields(names ...string) Option {
	return func(b *Backtest) {
		if len(names) > 0 {
			b.barsFields = names
		}
	}
}

// memo holds one lazily derived value of a Backtest.
type memo[T any] struct {
	once sync.Once
	v    T
	err  error
}

func (m *memo[T]) get(fn func() (T, error)) (T, error) {
	m.once.Do(func() { m.v, m.err = fn() })
	return m.v, m.err
}

// Backtest derives positions, trades and equity from the signal and price series found
// in its data. Each derived value is computed on first access and kept for the lifetime
// of the instance; the input data must not be mutated afterwards.
type Backtest struct {
	name         string
	runTime      time.Time
	data         models.DataObj
	signalFields models.Fields
	priceFields  models.Fields
	barsFields   []string

	bars       memo[*models.Bars]
	signals    memo[*models.Frame[bool]]
	prices     memo[*models.Frame[float64]]
	defPrice   memo[models.Series]
	tradePrice memo[models.Series]
	positions  memo[models.Series]
	trades     memo[*models.Ledger]
	equity     memo[models.Series]
}

// New creates a Backtest over data. Keys are matched case-insensitively.
func New(data map[string]any, opts ...Option) *Backtest {
	b := &Backtest{
		name:         "Unknown",
		runTime:      time.Now(),
		data:         models.NewDataObj(data),
		signalFields: models.DefaultSignalFields,
		priceFields:  models.DefaultPriceFields,
		barsFields:   models.BarsFieldCandidates,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the strategy name.
func (b *Backtest) Name() string { return b.name }

// RunTime returns the moment the instance was created.
func (b *Backtest) RunTime() time.Time { return b.runTime }

func (b *Backtest) String() string {
	return fmt.Sprintf("Backtest('%s', %s)", b.name, b.runTime.Format("2006-01-02 15:04:05 MST"))
}

// Bars returns the bars table of the instrument.
func (b *Backtest) Bars() (*models.Bars, error) {
	return b.bars.get(func() (*models.Bars, error) {
		return FindBars(b.data, b.barsFields)
	})
}

// Signals returns the canonical signal frame, or nil when no signal field was supplied.
func (b *Backtest) Signals() (*models.Frame[bool], error) {
	return b.signals.get(func() (*models.Frame[bool], error) {
		return ExtractSignals(b.data, b.signalFields)
	})
}

// Prices returns the explicit price frame, or nil when no price field was supplied.
func (b *Backtest) Prices() (*models.Frame[float64], error) {
	return b.prices.get(func() (*models.Frame[float64], error) {
		return ExtractPrices(b.data, b.priceFields)
	})
}

// DefaultPrice returns the next bar open used when no explicit price applies.
func (b *Backtest) DefaultPrice() (models.Series, error) {
	return b.defPrice.get(func() (models.Series, error) {
		bars, err := b.Bars()
		if err != nil {
			return models.Series{}, err
		}
		return DefaultPrices(bars), nil
	})
}

// TradePrice returns the resolved execution price of every bar.
func (b *Backtest) TradePrice() (models.Series, error) {
	return b.tradePrice.get(func() (models.Series, error) {
		def, err := b.DefaultPrice()
		if err != nil {
			return models.Series{}, err
		}
		prices, err := b.Prices()
		if err != nil {
			return models.Series{}, fmt.Errorf("prices: %w", err)
		}
		if prices == nil {
			return def, nil
		}
		signals, err := b.Signals()
		if err != nil {
			return models.Series{}, fmt.Errorf("signals: %w", err)
		}
		return ResolvePrices(prices, signals, def)
	})
}

// Positions returns the held position per bar.
func (b *Backtest) Positions() (models.Series, error) {
	return b.positions.get(func() (models.Series, error) {
		signals, err := b.Signals()
		if err != nil {
			return models.Series{}, fmt.Errorf("signals: %w", err)
		}
		return SignalsToPositions(signals)
	})
}

// Trades returns the trade ledger.
func (b *Backtest) Trades() (*models.Ledger, error) {
	return b.trades.get(func() (*models.Ledger, error) {
		pos, err := b.Positions()
		if err != nil {
			return nil, err
		}
		px, err := b.TradePrice()
		if err != nil {
			return nil, err
		}
		l, err := BuildLedger(pos, px)
		if err != nil {
			return nil, fmt.Errorf("trades: %w", err)
		}
		return l, nil
	})
}

// Equity returns the per-row profit of the ledger. Its cumulative sum is the equity curve.
func (b *Backtest) Equity() (models.Series, error) {
	return b.equity.get(func() (models.Series, error) {
		l, err := b.Trades()
		if err != nil {
			return models.Series{}, err
		}
		return LedgerToEquity(l), nil
	})
}

// FindBars returns the first candidate field holding a bars table.
func FindBars(data models.DataObj, candidates []string) (*models.Bars, error) {
	for _, name := range candidates {
		v, ok := data.Lookup(name)
		if !ok || v == nil {
			continue
		}
		switch bars := v.(type) {
		case *models.Bars:
			return bars, nil
		case models.Bars:
			return &bars, nil
		case []models.Candle:
			return models.BarsFromCandles(bars)
		default:
			return nil, fmt.Errorf("field %q: %w: %T is not a bars table", name, ErrTypeMismatch, v)
		}
	}
	return nil, ErrBarsNotFound
}
