package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/usecase"
	xhttp "RatioLab/pkg/http"
	"RatioLab/pkg/http/middleware"
	xlogger "RatioLab/pkg/logger"
)

// BacktestHandler serves baselines, grids, oracle days, curves and walk-forward runs.
type BacktestHandler struct {
	logger  *xlogger.Logger
	bt      *usecase.Backtester
	limiter *middleware.Limiter
}

func NewBacktestHandler(logger *xlogger.Logger, bt *usecase.Backtester, limiter *middleware.Limiter) *BacktestHandler {
	return &BacktestHandler{logger: logger, bt: bt, limiter: limiter}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/baseline", h.Baseline)
	g.GET("/curve", h.Curve)

	heavy := g.Group("", middleware.RateLimit(h.limiter, h.logger))
	heavy.GET("/grid", h.Grid)
	heavy.GET("/oracle", h.Oracle)
	heavy.GET("/walkforward", h.WalkForward)
	heavy.DELETE("/cache", h.InvalidateCache)
}

func (h *BacktestHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *BacktestHandler) Baseline(c echo.Context) error {
	q := &models.BaselineQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := usecase.BaselineRequestFromQuery(*q, h.bt.Defaults())
	if err != nil {
		return h.fail(c, "baseline", err)
	}
	res, err := h.bt.Baseline(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "baseline", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Grid(c echo.Context) error {
	q := &models.GridQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := usecase.GridRequestFromQuery(*q, h.bt.Defaults())
	if err != nil {
		return h.fail(c, "grid", err)
	}
	res, err := h.bt.RunGrid(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "grid", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Oracle(c echo.Context) error {
	q := &models.OracleQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := usecase.ActionsRequestFromQuery(*q, h.bt.Defaults())
	if err != nil {
		return h.fail(c, "oracle", err)
	}
	res, err := h.bt.DailyBest(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "oracle", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) Curve(c echo.Context) error {
	q := &models.CurveQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := usecase.CurveRequestFromQuery(*q, h.bt.Defaults())
	if err != nil {
		return h.fail(c, "curve", err)
	}
	res, err := h.bt.DailyCurve(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "curve", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestHandler) WalkForward(c echo.Context) error {
	q := &models.WalkForwardQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req, err := usecase.WalkForwardRequestFromQuery(*q, h.bt.Defaults())
	if err != nil {
		return h.fail(c, "walkforward", err)
	}
	res, err := h.bt.WalkForward(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "walkforward", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// InvalidateCache drops memoized daily actions after the feed has been reloaded.
func (h *BacktestHandler) InvalidateCache(c echo.Context) error {
	if err := h.bt.InvalidateActions(c.Request().Context()); err != nil {
		return h.fail(c, "cache", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "invalidated"})
}

// fail maps use-case errors onto the AppError envelope.
func (h *BacktestHandler) fail(c echo.Context, endpoint string, err error) error {
	return xhttp.AppErrorResponse(c, h.appError(endpoint, err))
}

func (h *BacktestHandler) appError(endpoint string, err error) error {
	var ce *models.ConfigError
	switch {
	case errors.As(err, &ce):
		return xhttp.ConfigurationError(ce.Param, ce.Reason).WithError(err)
	case models.IsInsufficient(err):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", err.Error()).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_CANCELED", "", "request canceled", http.StatusServiceUnavailable).WithError(err)
	}
	h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	return xhttp.InternalError("backtest failed").WithError(err)
}
