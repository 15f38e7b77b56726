package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinBack/internal/service/ratelimit"
	"FinBack/pkg/config"
	xhttp "FinBack/pkg/http"
	pkgkafka "FinBack/pkg/kafka"
	applogger "FinBack/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const limiterPruneInterval = time.Minute

type closer struct {
	name  string
	close func() error
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	limiter    *ratelimit.Limiter
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
	closers    []closer
	checks     []healthCheck
}

// New creates a new App serving handler over HTTP.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, limiter *ratelimit.Limiter) *App {
	return &App{cfg: cfg, l: l.Named("app"), handler: handler, limiter: limiter}
}

// WithConsumer makes the app consume kh's topic.
func (a *App) WithConsumer(consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = consumer
	a.kh = kh
}

// WithHealthCheck adds a dependency probed by /healthz.
func (a *App) WithHealthCheck(name string, check func(context.Context) error) {
	a.checks = append(a.checks, healthCheck{name: name, check: check})
}

// WithCloser registers a resource released on shutdown, in reverse order.
func (a *App) WithCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reg prometheus.Registerer
	if a.cfg.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
	}
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler, a.l,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithMetrics(reg, metricsPath),
	)
	a.httpServer.Echo().GET("/healthz", a.health)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.limiter != nil {
		go a.pruneLimiter(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start", applogger.Error(err))
		return err
	}
	a.l.Info("finback started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("kafka", a.consumer != nil),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(limiterPruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown stops intake first, then releases infrastructure.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.l.Warn("close "+c.name, applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for _, hc := range a.checks {
		if err := hc.check(ctx); err != nil {
			status[hc.name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[hc.name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}
