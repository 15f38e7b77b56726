package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRateLimit(t *testing.T) {
	budget := map[string]int{"192.0.2.1": 1}
	e := echo.New()
	e.Use(RateLimit(func(key string) bool {
		if budget[key] == 0 {
			return false
		}
		budget[key]--
		return true
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(echo.HeaderXRealIP, "192.0.2.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := get(); rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec := get()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get(echo.HeaderRetryAfter) == "" {
		t.Fatalf("second request: %d %v", rec.Code, rec.Header())
	}

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusTooManyRequests || len(body.Data) != 1 {
		t.Fatalf("unexpected envelope %s", rec.Body)
	}
	if got := body.Data[0]; got.Code != "ERR_RATE_LIMITED" || got.Params["key"] != "192.0.2.1" {
		t.Fatalf("unexpected error %+v", got)
	}
}
