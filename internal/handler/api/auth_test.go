package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tradevision/internal/domain/models"
	"tradevision/internal/service/token"
	"tradevision/internal/usecase"
	"tradevision/pkg/logger"
)

type dropMailer struct{}

func (dropMailer) SendVerification(context.Context, string, string) error { return nil }

func newAuthEcho(t *testing.T, users *memUserStore) (*echo.Echo, *token.Manager) {
	t.Helper()
	tokens := token.NewManager("test-secret", time.Hour)
	auth := usecase.NewAuthUseCase(users, tokens, dropMailer{}, logger.Nop(), bcrypt.MinCost)
	h := NewAuthHandler(logger.Nop(), auth, tokens)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, tokens
}

func TestVerifyEmailAcceptsGetAndPost(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		tok := "one-shot-token"
		users := &memUserStore{user: &models.User{ID: 1, Email: "a@b.c", VerificationToken: &tok}}
		e, _ := newAuthEcho(t, users)

		req := httptest.NewRequest(method, "/api/auth/verify-email/one-shot-token", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, method)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "a@b.c", body["email"])
	}
}

func TestChangePasswordBodyKeys(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &memUserStore{user: &models.User{
		ID: 1, Email: "a@b.c", EmailVerified: true, PasswordHash: string(hash),
	}}
	e, tokens := newAuthEcho(t, users)

	tok, err := tokens.Generate("a@b.c")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password",
		strings.NewReader(`{"old_password":"hunter22","new_password":"hunter2222"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.user.PasswordHash), []byte("hunter2222")))
}
