package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	ledgerRows   prometheus.Histogram
	cacheLookups *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finback_backtest_runs_total",
				Help: "Total number of backtest runs by source and result",
			},
			[]string{"source", "result"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finback_backtest_run_duration_seconds",
				Help:    "Duration of backtest runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		ledgerRows: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finback_backtest_ledger_rows",
				Help:    "Number of ledger rows produced per run",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finback_result_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"hit"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finback_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(source, result string, seconds float64) {
	r.runsTotal.WithLabelValues(source, result).Inc()
	r.runDuration.WithLabelValues(source).Observe(seconds)
}

func (r *Recorder) RecordLedgerRows(n int) {
	r.ledgerRows.Observe(float64(n))
}

func (r *Recorder) RecordCacheLookup(hit bool) {
	r.cacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
