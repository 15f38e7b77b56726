package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordRun("http", "ok", 0.2)
	r.RecordRun("http", "ok", 0.1)
	r.RecordRun("kafka", "error", 0.1)
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)
	r.RecordError("ledger_store")

	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("http", "ok")); got != 2 {
		t.Fatalf("http ok runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("false")); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("ledger_store")); got != 1 {
		t.Fatalf("errors = %v, want 1", got)
	}
}

func TestRecordersDoNotClash(t *testing.T) {
	// separate registries must not panic on duplicate names
	NewWithRegisterer(prometheus.NewRegistry())
	NewWithRegisterer(prometheus.NewRegistry())
}
