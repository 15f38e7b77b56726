package models

import "time"

// Requests for backtest HTTP endpoints.

type BacktestRequest struct {
	Name   string    `json:"name" default:"Unknown" validate:"max=128"`
	Symbol string    `json:"symbol" validate:"required_without=Bars"`
	TF     string    `json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1h 1d"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Bars   []Candle  `json:"bars"`

	// Fields holds the named series of the run, each aligned to the bars.
	Fields       map[string][]any `json:"fields" validate:"required,min=1"`
	SignalFields []string         `json:"signal_fields" validate:"omitempty,len=4,dive,required"`
	PriceFields  []string         `json:"price_fields" validate:"omitempty,len=4,dive,required"`

	// ReportFrom and ReportTo restrict the summary totals to a sub-range.
	ReportFrom time.Time `json:"report_from"`
	ReportTo   time.Time `json:"report_to"`
}

type BacktestGetRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1h 1d"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}
