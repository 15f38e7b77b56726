package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"FinBack/pkg/config"
	xhttp "FinBack/pkg/http"
	applogger "FinBack/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestHealth(t *testing.T) {
	app := New(testConfig(t), applogger.Nop(), nil, nil)
	app.WithHealthCheck("ok", func(context.Context) error { return nil })

	e := echo.New()
	e.GET("/healthz", app.health)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	app.WithHealthCheck("db", func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestShutdownClosesInReverseOrder(t *testing.T) {
	app := New(testConfig(t), applogger.Nop(), nil, nil)
	app.httpServer = xhttp.NewServer(nil, applogger.Nop(), xhttp.WithMetrics(nil, ""))

	var order []string
	app.WithCloser("first", func() error { order = append(order, "first"); return nil })
	app.WithCloser("second", func() error { order = append(order, "second"); return errors.New("ignored") })

	if err := app.shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("unexpected close order %v", order)
	}
}
