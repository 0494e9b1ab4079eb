package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tradevision/internal/middleware"
	"tradevision/internal/usecase"
	xhttp "tradevision/pkg/http"
	xlogger "tradevision/pkg/logger"
)

const maxWebhookBody = 64 * 1024

// WebhookHandler ingests TradingView alert webhooks. Payloads are
// authenticated with an HMAC-SHA256 signature over the raw body.
type WebhookHandler struct {
	logger  *xlogger.Logger
	signals *usecase.SignalsUseCase
	cfg     WebhookConfig
}

type WebhookConfig struct {
	Secret             string
	VerifySignature    bool
	TimestampTolerance time.Duration
	RateLimitPerSec    float64
	RateLimitBurst     int
}

func NewWebhookHandler(logger *xlogger.Logger, signals *usecase.SignalsUseCase, cfg WebhookConfig) *WebhookHandler {
	return &WebhookHandler{logger: logger, signals: signals, cfg: cfg}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/tv-hook", h.Ingest, middleware.RateLimit(h.cfg.RateLimitPerSec, h.cfg.RateLimitBurst))
}

type webhookPayload struct {
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"tf"`
	Direction  string   `json:"direction"`
	Price      float64  `json:"price"`
	Confidence *float64 `json:"confidence"`
	Timestamp  int64    `json:"ts"` // unix milliseconds
}

func (h *WebhookHandler) Ingest(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "unreadable body")
	}

	if h.cfg.VerifySignature {
		if !h.signatureValid(c.Request().Header.Get("X-TV-Signature"), body) {
			h.logger.Warn("webhook signature mismatch", xlogger.String("remote", c.RealIP()))
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "invalid signature")
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "malformed payload")
	}

	ts := time.Now().UTC()
	if payload.Timestamp > 0 {
		ts = time.UnixMilli(payload.Timestamp).UTC()
		if h.cfg.TimestampTolerance > 0 {
			if drift := time.Since(ts); drift > h.cfg.TimestampTolerance || drift < -h.cfg.TimestampTolerance {
				return xhttp.ErrorResponse(c, http.StatusBadRequest, "timestamp outside tolerance")
			}
		}
	}

	signal, err := h.signals.Ingest(c.Request().Context(), usecase.IngestParams{
		Symbol:     payload.Symbol,
		Timeframe:  payload.Timeframe,
		Direction:  payload.Direction,
		Price:      payload.Price,
		Confidence: payload.Confidence,
		Timestamp:  ts,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrDuplicateSignal):
			return xhttp.OK(c, map[string]string{"status": "duplicate"})
		case errors.Is(err, usecase.ErrSignalRejected):
			return xhttp.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
		}
		h.logger.Error("webhook ingest", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.JSON(c, http.StatusCreated, map[string]interface{}{
		"status":    "accepted",
		"symbol":    signal.Symbol,
		"tf":        signal.Timeframe,
		"enter_at":  signal.EnterAt,
		"expire_at": signal.ExpireAt,
	})
}

func (h *WebhookHandler) signatureValid(header string, body []byte) bool {
	if header == "" || h.cfg.Secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.cfg.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
