package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "FinBack/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	if rec := serve(e, http.MethodGet, "/boom", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := newHTTPMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.middleware(applogger.Nop(), 0))
	e.GET("/runs/:id", func(c echo.Context) error { return c.String(http.StatusOK, c.Param("id")) })

	serve(e, http.MethodGet, "/runs/a", nil)
	serve(e, http.MethodGet, "/runs/b", nil)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/runs/:id", http.MethodGet, "200")); got != 2 {
		t.Fatalf("expected 2 requests on the template route, got %v", got)
	}
	if got := testutil.ToFloat64(m.inFlight.WithLabelValues("/runs/:id", http.MethodGet)); got != 0 {
		t.Fatalf("in-flight gauge not released: %v", got)
	}
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowMethods: []string{http.MethodGet},
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/x", http.Header{echo.HeaderOrigin: {"https://app.example"}})
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://app.example" {
		t.Fatalf("missing allow origin: %v", rec.Header())
	}
	rec = serve(e, http.MethodGet, "/x", http.Header{echo.HeaderOrigin: {"https://evil.example"}})
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin allowed")
	}
}
