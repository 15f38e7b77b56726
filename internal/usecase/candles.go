package usecase

import (
	"context"
	"fmt"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
)

const (
	defaultCandleLimit = 10000
	maxCandleLimit     = 50000
)

// CandlesUseCase provides business logic for retrieving candles.
type CandlesUseCase struct {
	store domrepo.CandleStore
}

func NewCandlesUseCase(store domrepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"tf"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Count     int             `json:"count"`
	Truncated bool            `json:"truncated,omitempty"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if uc == nil || uc.store == nil {
		return nil, fmt.Errorf("%w: no candle store configured", ErrInvalidParams)
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidParams)
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", ErrInvalidParams)
	}
	if p.Limit <= 0 {
		p.Limit = defaultCandleLimit
	}
	p.Limit = min(p.Limit, maxCandleLimit)
	p.Timeframe = domrepo.NormalizeTimeframe(string(p.Timeframe))

	candles, err := uc.store.GetCandles(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	truncated := len(candles) > p.Limit
	if truncated {
		candles = candles[:p.Limit]
	}

	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(candles),
		Truncated: truncated,
		Candles:   candles,
	}, nil
}
