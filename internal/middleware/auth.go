package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tradevision/internal/service/token"
	xhttp "tradevision/pkg/http"
)

const emailContextKey = "auth.email"

// RequireAuth validates the bearer token and stashes the subject email on
// the request context. Requests without a valid token get 401 with a
// detail body; clients treat that as a session expiry.
func RequireAuth(tokens *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return xhttp.ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
			}
			email, err := tokens.Verify(raw)
			if err != nil {
				return xhttp.ErrorResponse(c, http.StatusUnauthorized, "could not validate credentials")
			}
			c.Set(emailContextKey, email)
			return next(c)
		}
	}
}

// AuthEmail returns the authenticated email set by RequireAuth.
func AuthEmail(c echo.Context) string {
	email, _ := c.Get(emailContextKey).(string)
	return email
}
