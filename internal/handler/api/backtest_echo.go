package api

import (
	"errors"
	"time"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
	"FinBack/internal/usecase"
	xhttp "FinBack/pkg/http"
	xlogger "FinBack/pkg/logger"
	xutil "FinBack/pkg/util"

	"github.com/labstack/echo/v4"
)

// BacktestEchoHandler exposes backtest runs and the candles they are computed on.
type BacktestEchoHandler struct {
	logger  *xlogger.Logger
	runner  *usecase.BacktestRunner
	candles *usecase.CandlesUseCase
	allow   func(key string) bool
}

// NewBacktestEchoHandler creates the handler. allow may be nil to disable rate limiting of runs.
func NewBacktestEchoHandler(logger *xlogger.Logger, runner *usecase.BacktestRunner, candles *usecase.CandlesUseCase, allow func(key string) bool) *BacktestEchoHandler {
	return &BacktestEchoHandler{logger: logger.Named("api"), runner: runner, candles: candles, allow: allow}
}

func (h *BacktestEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	var mw []echo.MiddlewareFunc
	if h.allow != nil {
		mw = append(mw, xhttp.RateLimit(h.allow))
	}
	g.POST("/backtests", h.Run, mw...)
	g.GET("/backtests/:id", h.Get)
	g.GET("/candles", h.Candles)
}

// Run executes a backtest synchronously and returns the full result.
func (h *BacktestEchoHandler) Run(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.runner.Run(c.Request().Context(), usecase.RunParams{
		Name:         req.Name,
		Symbol:       req.Symbol,
		Timeframe:    req.TF,
		From:         req.From,
		To:           req.To,
		Bars:         req.Bars,
		Fields:       req.Fields,
		SignalFields: req.SignalFields,
		PriceFields:  req.PriceFields,
		ReportFrom:   req.ReportFrom,
		ReportTo:     req.ReportTo,
		Source:       usecase.SourceHTTP,
	})
	if err != nil {
		return h.fail(c, "run backtest", err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *BacktestEchoHandler) Get(c echo.Context) error {
	req := &models.BacktestGetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.runner.Get(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "get backtest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
	from, to = xutil.AlignFromTo(from, to, req.TF)

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.Timeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		return h.fail(c, "get candles", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

// fail maps use case errors to HTTP errors. Only unexpected failures are logged as errors.
func (h *BacktestEchoHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case usecase.IsInvalid(err):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, usecase.ErrRunNotFound):
		appErr = xhttp.NotFoundErrorf("backtest %s not found", c.Param("id"))
	case errors.Is(err, usecase.ErrRunInProgress):
		appErr = xhttp.ConflictError(err.Error())
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		appErr = xhttp.InternalError(op + " failed")
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
