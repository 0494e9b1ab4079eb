package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tradevision/internal/middleware"
	"tradevision/internal/service/token"
	"tradevision/internal/usecase"
	xhttp "tradevision/pkg/http"
	xlogger "tradevision/pkg/logger"
)

// AuthHandler serves registration, login and account endpoints.
type AuthHandler struct {
	logger *xlogger.Logger
	auth   *usecase.AuthUseCase
	tokens *token.Manager
}

func NewAuthHandler(logger *xlogger.Logger, auth *usecase.AuthUseCase, tokens *token.Manager) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth, tokens: tokens}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/verify-email/:token", h.VerifyEmail)
	g.POST("/verify-email/:token", h.VerifyEmail)
	g.POST("/resend-verification", h.ResendVerification)

	authed := g.Group("", middleware.RequireAuth(h.tokens))
	authed.GET("/me", h.Me)
	authed.POST("/change-password", h.ChangePassword)
	authed.POST("/logout", h.Logout)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	req := &registerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	user, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrEmailTaken) {
			return xhttp.ErrorResponse(c, http.StatusConflict, "email already registered")
		}
		h.logger.Error("register", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.JSON(c, http.StatusCreated, user)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login accepts form-encoded credentials with the password-grant field
// names, so standard OAuth2 password clients work unchanged.
func (h *AuthHandler) Login(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")
	if email == "" || password == "" {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "username and password required")
	}

	tok, _, err := h.auth.Login(c.Request().Context(), email, password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "incorrect email or password")
		}
		h.logger.Error("login", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, tokenResponse{AccessToken: tok, TokenType: "bearer"})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	user, err := h.auth.VerifyEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidVerifyToken) {
			return xhttp.ErrorResponse(c, http.StatusBadRequest, "invalid or expired verification token")
		}
		h.logger.Error("verify email", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, map[string]interface{}{
		"message": "email verified",
		"email":   user.Email,
	})
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	req := &resendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	err := h.auth.ResendVerification(c.Request().Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrAlreadyVerified):
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "email already verified")
	case errors.Is(err, usecase.ErrUserNotFound):
		// Do not leak which emails exist.
	default:
		h.logger.Error("resend verification", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, map[string]string{"message": "verification email sent"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.auth.CurrentUser(c.Request().Context(), middleware.AuthEmail(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
		}
		h.logger.Error("current user", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	req := &changePasswordRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	err := h.auth.ChangePassword(c.Request().Context(), middleware.AuthEmail(c), req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, usecase.ErrWrongPassword) {
			return xhttp.ErrorResponse(c, http.StatusBadRequest, "current password is incorrect")
		}
		h.logger.Error("change password", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
	return xhttp.OK(c, map[string]string{"message": "password changed"})
}

// Logout is a server-side no-op with stateless tokens; clients drop the
// token locally. The endpoint exists so clients have a single call site.
func (h *AuthHandler) Logout(c echo.Context) error {
	return xhttp.OK(c, map[string]string{"message": "logged out"})
}
