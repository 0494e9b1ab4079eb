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

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	"tradevision/internal/service/token"
	"tradevision/internal/usecase"
	"tradevision/pkg/logger"
)

type memUserStore struct {
	user      *models.User
	postbacks []*models.PostbackLog
}

func (m *memUserStore) Init(context.Context) error                 { return nil }
func (m *memUserStore) Create(context.Context, *models.User) error { return nil }

func (m *memUserStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	if m.user != nil && m.user.Email == email {
		copied := *m.user
		return &copied, nil
	}
	return nil, domrepo.ErrNotFound
}

func (m *memUserStore) ByVerificationToken(_ context.Context, tok string) (*models.User, error) {
	if m.user != nil && m.user.VerificationToken != nil && *m.user.VerificationToken == tok {
		copied := *m.user
		return &copied, nil
	}
	return nil, domrepo.ErrNotFound
}

func (m *memUserStore) ByTraderID(_ context.Context, traderID string) (*models.User, error) {
	if m.user != nil && m.user.TraderID != nil && *m.user.TraderID == traderID {
		copied := *m.user
		return &copied, nil
	}
	return nil, domrepo.ErrNotFound
}

func (m *memUserStore) MarkEmailVerified(context.Context, int64) error {
	m.user.EmailVerified = true
	m.user.VerificationToken = nil
	return nil
}

func (m *memUserStore) SetVerificationToken(_ context.Context, _ int64, tok string) error {
	m.user.VerificationToken = &tok
	return nil
}

func (m *memUserStore) SetPasswordHash(_ context.Context, _ int64, hash string) error {
	m.user.PasswordHash = hash
	return nil
}

func (m *memUserStore) LinkBroker(_ context.Context, _ int64, traderID string) error {
	m.user.TraderID = &traderID
	m.user.BrokerVerified = true
	return nil
}

func (m *memUserStore) UpdateDeposit(_ context.Context, _ int64, total float64, level models.AccessLevel) error {
	m.user.TotalDeposit = total
	m.user.AccessLevel = level
	return nil
}

func (m *memUserStore) LogPostback(_ context.Context, entry *models.PostbackLog) error {
	entry.ReceivedAt = time.Now()
	m.postbacks = append(m.postbacks, entry)
	return nil
}

type memBroker struct {
	deposits map[string]float64
}

func (b *memBroker) VerifyTrader(_ context.Context, traderID string) (bool, error) {
	_, ok := b.deposits[traderID]
	return ok, nil
}

func (b *memBroker) TotalDeposit(_ context.Context, traderID string) (float64, error) {
	return b.deposits[traderID], nil
}

func newBrokerEcho(t *testing.T, users *memUserStore, broker *memBroker) (*echo.Echo, *token.Manager) {
	t.Helper()
	tokens := token.NewManager("test-secret", time.Hour)
	access := usecase.NewAccessUseCase(users, broker, quietMetrics{}, logger.Nop(), 10)
	h := NewBrokerHandler(logger.Nop(), access, tokens, "https://signals.example.com")
	e := echo.New()
	h.RegisterRoutes(e)
	return e, tokens
}

func authedGet(t *testing.T, e *echo.Echo, tokens *token.Manager, email, target string) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := tokens.Generate(email)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func linkedUser() *models.User {
	id := "777"
	return &models.User{
		ID: 1, Email: "a@b.c", EmailVerified: true,
		TraderID: &id, BrokerVerified: true, TotalDeposit: 5,
		AccessLevel: models.AccessNone,
	}
}

func TestCanAccessSignalsPayload(t *testing.T) {
	users := &memUserStore{user: linkedUser()}
	e, tokens := newBrokerEcho(t, users, &memBroker{deposits: map[string]float64{"777": 5}})

	rec := authedGet(t, e, tokens, "a@b.c", "/api/auth/can-access-signals")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["can_access"])
	assert.Equal(t, true, body["is_verified"])
	assert.Equal(t, true, body["pocket_option_verified"])
	assert.Equal(t, false, body["has_min_deposit"])
	assert.Equal(t, 5.0, body["balance"])
	assert.Equal(t, 10.0, body["min_required"])
	assert.Equal(t, "Balance $5, minimum $10", body["message"])
}

func TestCheckBalanceByTraderID(t *testing.T) {
	users := &memUserStore{user: linkedUser()}
	e, tokens := newBrokerEcho(t, users, &memBroker{deposits: map[string]float64{"777": 60}})

	rec := authedGet(t, e, tokens, "a@b.c", "/api/pocket-option/check-balance/777")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 60.0, body["balance"])
	assert.Equal(t, true, body["can_access"])
	assert.Equal(t, 60.0, users.user.TotalDeposit)
}

func TestWebhookURLPointsAtPostback(t *testing.T) {
	users := &memUserStore{user: linkedUser()}
	e, tokens := newBrokerEcho(t, users, &memBroker{deposits: map[string]float64{}})

	rec := authedGet(t, e, tokens, "a@b.c", "/api/pocket-option/webhook-url")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://signals.example.com/api/pocket-option/postback", body["webhook_url"])
}

func TestPostbackRoutesRecordLog(t *testing.T) {
	users := &memUserStore{user: linkedUser()}
	e, _ := newBrokerEcho(t, users, &memBroker{deposits: map[string]float64{}})

	query := "/api/pocket-option/postback?trader_id=777&dep=1&sumdep=30&totaldep=30&click_id=c1"
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, query, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}

	require.Len(t, users.postbacks, 2)
	assert.Equal(t, "dep", users.postbacks[0].EventType)
	assert.Equal(t, "777", users.postbacks[0].TraderID)
	assert.Contains(t, users.postbacks[0].RawQuery, "trader_id=777")
	assert.Equal(t, 30.0, users.user.TotalDeposit)
}

func TestVerifyPocketOptionBodyKey(t *testing.T) {
	users := &memUserStore{user: &models.User{ID: 1, Email: "a@b.c", EmailVerified: true}}
	e, tokens := newBrokerEcho(t, users, &memBroker{deposits: map[string]float64{"999": 20}})

	tok, err := tokens.Generate("a@b.c")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-pocket-option",
		strings.NewReader(`{"pocket_option_id":"999"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["pocket_option_verified"])
}
