package models

import "time"

// RunStatus is the outcome of a backtest run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// BacktestResult is everything a finished run exposes to clients. It is what gets cached.
type BacktestResult struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Symbol    string       `json:"symbol,omitempty"`
	RunTime   time.Time    `json:"run_time"`
	Bars      int          `json:"bars"`
	Positions []Point      `json:"positions"`
	Trades    []LedgerRow  `json:"trades"`
	Equity    []Point      `json:"equity"`
	Curve     []Point      `json:"curve"`
	Events    []TradeEvent `json:"events"`
	Summary   RunSummary   `json:"summary"`
}

// RunSummary is the compact form of a run published to downstream consumers.
type RunSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Symbol     string    `json:"symbol,omitempty"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	RunTime    time.Time `json:"run_time"`
	Bars       int       `json:"bars"`
	LedgerRows int       `json:"ledger_rows"`
	Entries    int       `json:"entries"`
	Exits      int       `json:"exits"`
	Total      Float     `json:"total"`
	RangeFrom  time.Time `json:"range_from,omitzero"`
	RangeTo    time.Time `json:"range_to,omitzero"`
	RangeTotal Float     `json:"range_total"`

	// ledger rows and trade events inside the report range
	RangeRows   int `json:"range_rows"`
	RangeEvents int `json:"range_events"`
}
