package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
	"FinBack/internal/usecase"
	"FinBack/pkg/cache"
	xlogger "FinBack/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubCandles struct {
	candles []models.Candle
	gotTF   domrepo.Timeframe
}

func (s *stubCandles) GetCandles(_ context.Context, _ string, _, _ time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.gotTF = tf
	return s.candles, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, allow func(string) bool) (*echo.Echo, *stubCandles) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	store := &stubCandles{}
	candles := usecase.NewCandlesUseCase(store)
	runner := usecase.NewBacktestRunner(candles, nil, nil, mc, nil, xlogger.Nop(), usecase.RunnerConfig{MaxBars: 1000})

	e := echo.New()
	NewBacktestEchoHandler(xlogger.Nop(), runner, candles, allow).RegisterRoutes(e)
	return e, store
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const runBody = `{
	"name": "buy-sell",
	"bars": [
		{"t": "2024-03-01T00:00:00Z", "o": 9, "h": 9, "l": 9, "c": 9},
		{"t": "2024-03-01T01:00:00Z", "o": 10, "h": 10, "l": 10, "c": 10},
		{"t": "2024-03-01T02:00:00Z", "o": 11, "h": 11, "l": 11, "c": 11},
		{"t": "2024-03-01T03:00:00Z", "o": 12, "h": 12, "l": 12, "c": 12}
	],
	"fields": {
		"buy": [true, false, false, false],
		"sell": [false, false, true, false]
	}
}`

func TestRunThenGet(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/api/backtests", runBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run: %d %s", rec.Code, rec.Body)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var res models.BacktestResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Summary.Total != 2 || len(res.Trades) != 4 {
		t.Fatalf("unexpected result %+v", res.Summary)
	}
	// first ledger row has no volume and is sent as null
	if !strings.Contains(rec.Body.String(), `"vol":null`) {
		t.Fatalf("expected a null volume in %s", rec.Body)
	}

	rec = do(e, http.MethodGet, "/api/backtests/"+res.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}
}

func TestRunValidation(t *testing.T) {
	e, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"no fields", `{"symbol": "AAPL"}`, http.StatusBadRequest},
		{"no bars or symbol", `{"fields": {"buy": [true]}}`, http.StatusBadRequest},
		{"bad timeframe", `{"symbol": "AAPL", "tf": "3m", "fields": {"buy": [true]}}`, http.StatusBadRequest},
		{"three signal names", `{"symbol": "AAPL", "signal_fields": ["a", "b", "c"], "fields": {"a": [true]}}`, http.StatusBadRequest},
		{"signal type mismatch", strings.Replace(runBody, `[true, false, false, false]`, `["maybe", false, false, false]`, 1), http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(e, http.MethodPost, "/api/backtests", tt.body); rec.Code != tt.want {
				t.Fatalf("expected %d, got %d %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestGetUnknownRun(t *testing.T) {
	e, _ := newTestServer(t, nil)

	if rec := do(e, http.MethodGet, "/api/backtests/6f1c1f52-5f0e-4a8e-9a70-0d3c5c1f8e11", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/backtests/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunRateLimited(t *testing.T) {
	e, _ := newTestServer(t, func(string) bool { return false })

	rec := do(e, http.MethodPost, "/api/backtests", runBody)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"ERR_RATE_LIMITED"`) {
		t.Fatalf("expected the error envelope, got %s", rec.Body)
	}
}

func TestCandles(t *testing.T) {
	e, store := newTestServer(t, nil)
	store.candles = []models.Candle{{Bucket: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Open: 1, Close: 2}}

	rec := do(e, http.MethodGet, "/api/candles?symbol=AAPL&tf=1h&from=2024-03-01&to=2024-03-02", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("candles: %d %s", rec.Code, rec.Body)
	}
	if store.gotTF != domrepo.TF1h {
		t.Fatalf("timeframe not forwarded, got %q", store.gotTF)
	}

	if rec := do(e, http.MethodGet, "/api/candles?tf=1m", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without symbol, got %d", rec.Code)
	}
}
