package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	domrepo "tradevision/internal/domain/repository"
	"tradevision/internal/usecase"
	xhttp "tradevision/pkg/http"
	xlogger "tradevision/pkg/logger"
)

// PublicHandler serves the signal read endpoints consumed by the polling
// clients: latest signal, rolling stats and the symbol universe.
type PublicHandler struct {
	logger     *xlogger.Logger
	signals    *usecase.SignalsUseCase
	stats      *usecase.StatsUseCase
	timeframes []string
}

func NewPublicHandler(logger *xlogger.Logger, signals *usecase.SignalsUseCase, stats *usecase.StatsUseCase, timeframes []string) *PublicHandler {
	return &PublicHandler{logger: logger, signals: signals, stats: stats, timeframes: timeframes}
}

func (h *PublicHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/stats", h.Stats)
	g.GET("/stats/performance", h.Performance)
	g.GET("/stats/market-hours", h.MarketHours)
	g.GET("/symbols", h.Symbols)
	g.GET("/health", h.Health)
}

type signalQuery struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"tf" validate:"required"`
}

// Signal returns the newest signal for a pair. A pair with no signal yet
// is a 404, which clients treat as "nothing to show", not a failure.
func (h *PublicHandler) Signal(c echo.Context) error {
	req := &signalQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	s, err := h.signals.Latest(c.Request().Context(), req.Symbol, req.Timeframe)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return xhttp.ErrorResponse(c, http.StatusNotFound, "no signal available")
		}
		h.logger.Error("latest signal", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, s)
}

// Stats returns the rolling performance counters for a pair.
func (h *PublicHandler) Stats(c echo.Context) error {
	req := &signalQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	st, err := h.stats.Get(c.Request().Context(), req.Symbol, req.Timeframe)
	if err != nil {
		h.logger.Error("stats", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, st)
}

type performanceQuery struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"tf" validate:"required"`
	Days      int    `query:"days"`
}

// Performance aggregates outcomes over a trailing window of days,
// defaulting to 30 and clamped to a year.
func (h *PublicHandler) Performance(c echo.Context) error {
	req := &performanceQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	days := req.Days
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}

	perf, err := h.stats.Performance(c.Request().Context(), req.Symbol, req.Timeframe, days)
	if err != nil {
		h.logger.Error("performance stats", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, perf)
}

// MarketHours buckets historical outcomes by UTC hour of day.
func (h *PublicHandler) MarketHours(c echo.Context) error {
	req := &signalQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	hours, err := h.stats.MarketHours(c.Request().Context(), req.Symbol, req.Timeframe)
	if err != nil {
		h.logger.Error("market hours", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, hours)
}

type symbolsResponse struct {
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
}

func (h *PublicHandler) Symbols(c echo.Context) error {
	return xhttp.OK(c, symbolsResponse{
		Symbols:    h.signals.Symbols(),
		Timeframes: h.timeframes,
	})
}

func (h *PublicHandler) Health(c echo.Context) error {
	return xhttp.OK(c, map[string]string{"status": "ok"})
}
