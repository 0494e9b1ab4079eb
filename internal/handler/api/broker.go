package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tradevision/internal/middleware"
	svcbroker "tradevision/internal/service/broker"
	"tradevision/internal/service/token"
	"tradevision/internal/usecase"
	xhttp "tradevision/pkg/http"
	xlogger "tradevision/pkg/logger"
)

// BrokerHandler serves the access gate and broker linkage endpoints, plus
// the affiliate postback receiver.
type BrokerHandler struct {
	logger  *xlogger.Logger
	access  *usecase.AccessUseCase
	tokens  *token.Manager
	baseURL string
}

func NewBrokerHandler(logger *xlogger.Logger, access *usecase.AccessUseCase, tokens *token.Manager, baseURL string) *BrokerHandler {
	return &BrokerHandler{logger: logger, access: access, tokens: tokens, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *BrokerHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/auth", middleware.RequireAuth(h.tokens))
	g.GET("/can-access-signals", h.CanAccess)
	g.POST("/verify-pocket-option", h.VerifyPocketOption)
	g.POST("/check-balance", h.CheckBalance)

	po := e.Group("/api/pocket-option")
	po.GET("/check-balance/:pocket_option_id", h.CheckBalanceFor, middleware.RequireAuth(h.tokens))
	po.GET("/webhook-url", h.WebhookURL, middleware.RequireAuth(h.tokens))
	po.GET("/postback", h.Postback)
	po.POST("/postback", h.Postback)
}

// CanAccess is the access gate. It always answers 200 with the derived
// status; only auth failures and server errors use error codes, so client
// gates can fail closed on anything but a clean payload.
func (h *BrokerHandler) CanAccess(c echo.Context) error {
	st, err := h.access.Status(c.Request().Context(), middleware.AuthEmail(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		}
		h.logger.Error("access status", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, st)
}

type verifyBrokerRequest struct {
	TraderID string `json:"pocket_option_id" validate:"required"`
}

func (h *BrokerHandler) VerifyPocketOption(c echo.Context) error {
	req := &verifyBrokerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	st, err := h.access.LinkBroker(c.Request().Context(), middleware.AuthEmail(c), req.TraderID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTraderNotFound):
			return xhttp.ErrorResponse(c, http.StatusNotFound, "trader id not found under our affiliate link")
		case errors.Is(err, usecase.ErrTraderTaken):
			return xhttp.ErrorResponse(c, http.StatusConflict, "trader id already linked to another account")
		case errors.Is(err, svcbroker.ErrUnavailable):
			return xhttp.ErrorResponse(c, http.StatusServiceUnavailable, "broker verification is temporarily unavailable")
		case errors.Is(err, usecase.ErrUserNotFound):
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		}
		h.logger.Error("verify broker", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, st)
}

func (h *BrokerHandler) CheckBalance(c echo.Context) error {
	st, err := h.access.RefreshBalance(c.Request().Context(), middleware.AuthEmail(c))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBrokerNotLinked):
			return xhttp.ErrorResponse(c, http.StatusBadRequest, "no broker account linked")
		case errors.Is(err, svcbroker.ErrUnavailable):
			return xhttp.ErrorResponse(c, http.StatusServiceUnavailable, "balance check is temporarily unavailable")
		case errors.Is(err, usecase.ErrUserNotFound):
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		}
		h.logger.Error("check balance", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, st)
}

// CheckBalanceFor looks up the live deposit total for an arbitrary trader
// id, updating the caller's stored total when the id is their own.
func (h *BrokerHandler) CheckBalanceFor(c echo.Context) error {
	st, err := h.access.CheckBalance(c.Request().Context(), middleware.AuthEmail(c), c.Param("pocket_option_id"))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTraderNotFound):
			return xhttp.ErrorResponse(c, http.StatusBadRequest, "pocket option id required")
		case errors.Is(err, svcbroker.ErrUnavailable):
			return xhttp.ErrorResponse(c, http.StatusServiceUnavailable, "balance check is temporarily unavailable")
		case errors.Is(err, usecase.ErrUserNotFound):
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		}
		h.logger.Error("check balance", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, st)
}

// WebhookURL tells operators where to point the affiliate postback.
func (h *BrokerHandler) WebhookURL(c echo.Context) error {
	return xhttp.OK(c, map[string]string{
		"webhook_url":  h.baseURL + "/api/pocket-option/postback",
		"instructions": "Set this URL as the postback target in the affiliate dashboard.",
	})
}

// Postback receives affiliate callbacks from the broker. It always
// answers 200 so the broker does not retry on application-level drops.
func (h *BrokerHandler) Postback(c echo.Context) error {
	pb := usecase.Postback{
		ClickID:      c.QueryParam("click_id"),
		TraderID:     c.QueryParam("trader_id"),
		SumDep:       usecase.ParsePostbackAmount(c.QueryParam("sumdep")),
		TotalDep:     usecase.ParsePostbackAmount(c.QueryParam("totaldep")),
		Registration: usecase.ParsePostbackValue(c.QueryParam("reg")),
		Confirmation: usecase.ParsePostbackValue(c.QueryParam("conf")),
		FirstDeposit: usecase.ParsePostbackValue(c.QueryParam("ftd")),
		Deposit:      usecase.ParsePostbackValue(c.QueryParam("dep")),
		Raw:          c.QueryString(),
	}
	if err := h.access.HandlePostback(c.Request().Context(), pb); err != nil {
		h.logger.Warn("postback", xlogger.Error(err))
	}
	return xhttp.OK(c, map[string]string{"status": "ok"})
}
