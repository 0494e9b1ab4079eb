package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradevision/internal/domain/models"
	"tradevision/pkg/logger"
)

func seedUser(t *testing.T, users *fakeUserStore, email string, verified bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", EmailVerified: verified}
	require.NoError(t, users.Create(context.Background(), u))
	if verified {
		require.NoError(t, users.MarkEmailVerified(context.Background(), u.ID))
	}
	return u
}

func TestAccessStatusFunnel(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{"777": 25}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "a@b.c", false)
	st, err := uc.Status(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, st.CanAccess)
	assert.False(t, st.EmailVerified)
	assert.Equal(t, "Please verify your email address", st.Message)

	require.NoError(t, users.MarkEmailVerified(ctx, 1))
	st, err = uc.Status(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, st.BrokerVerified)
	assert.Equal(t, "Link your Pocket Option account to continue", st.Message)

	st, err = uc.LinkBroker(ctx, "a@b.c", "777")
	require.NoError(t, err)
	assert.True(t, st.CanAccess)
	assert.True(t, st.HasMinDeposit)
	assert.Equal(t, 25.0, st.Balance)
	assert.Equal(t, models.AccessLimited, st.AccessLevel)
}

func TestLinkBrokerUnknownTrader(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)

	seedUser(t, users, "a@b.c", true)
	_, err := uc.LinkBroker(context.Background(), "a@b.c", "999")
	assert.ErrorIs(t, err, ErrTraderNotFound)

	_, err = uc.LinkBroker(context.Background(), "a@b.c", "  ")
	assert.ErrorIs(t, err, ErrTraderNotFound)
}

func TestLinkBrokerTraderTaken(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{"777": 100}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "first@b.c", true)
	_, err := uc.LinkBroker(ctx, "first@b.c", "777")
	require.NoError(t, err)

	seedUser(t, users, "second@b.c", true)
	_, err = uc.LinkBroker(ctx, "second@b.c", "777")
	assert.ErrorIs(t, err, ErrTraderTaken)
}

// A storage failure during the duplicate-link check must surface, not be
// read as "trader id free".
func TestLinkBrokerLookupErrorPropagates(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{"777": 100}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)

	seedUser(t, users, "a@b.c", true)
	users.traderLookupErr = errTestBoom

	_, err := uc.LinkBroker(context.Background(), "a@b.c", "777")
	require.Error(t, err)
	assert.ErrorIs(t, err, errTestBoom)
	assert.NotErrorIs(t, err, ErrTraderTaken)
}

func TestRefreshBalanceRequiresLink(t *testing.T) {
	users := newFakeUserStore()
	uc := NewAccessUseCase(users, &fakeBroker{}, nopMetrics{}, logger.Nop(), 10)

	seedUser(t, users, "a@b.c", true)
	_, err := uc.RefreshBalance(context.Background(), "a@b.c")
	assert.ErrorIs(t, err, ErrBrokerNotLinked)
}

func TestRefreshBalancePromotesLevel(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{"777": 5}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "a@b.c", true)
	st, err := uc.LinkBroker(ctx, "a@b.c", "777")
	require.NoError(t, err)
	assert.False(t, st.CanAccess)
	assert.False(t, st.HasMinDeposit)
	assert.Equal(t, "Balance $5, minimum $10", st.Message)

	broker.registered["777"] = 160
	st, err = uc.RefreshBalance(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, st.CanAccess)
	assert.Equal(t, models.AccessUnlimitedAll, st.AccessLevel)
}

func TestHandlePostbackDeposit(t *testing.T) {
	users := newFakeUserStore()
	uc := NewAccessUseCase(users, &fakeBroker{registered: map[string]float64{"777": 0}}, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "a@b.c", true)
	_, err := uc.LinkBroker(ctx, "a@b.c", "777")
	require.NoError(t, err)

	require.NoError(t, uc.HandlePostback(ctx, Postback{
		TraderID: "777", Deposit: true, SumDep: 30, TotalDep: 30,
	}))
	u, err := users.ByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 30.0, u.TotalDeposit)
	assert.Equal(t, models.AccessLimited, u.AccessLevel)

	// an out-of-order postback carrying an older total must not shrink
	// the recorded deposit
	require.NoError(t, uc.HandlePostback(ctx, Postback{
		TraderID: "777", Deposit: true, SumDep: 10, TotalDep: 10,
	}))
	u, err = users.ByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 30.0, u.TotalDeposit)
}

func TestHandlePostbackRecordsLog(t *testing.T) {
	users := newFakeUserStore()
	uc := NewAccessUseCase(users, &fakeBroker{registered: map[string]float64{"777": 0}}, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "a@b.c", true)
	_, err := uc.LinkBroker(ctx, "a@b.c", "777")
	require.NoError(t, err)

	require.NoError(t, uc.HandlePostback(ctx, Postback{
		TraderID: "777", ClickID: "c1", Deposit: true, SumDep: 30, TotalDep: 30,
		Raw: "trader_id=777&dep=1&sumdep=30&totaldep=30&click_id=c1",
	}))

	logs := users.postbackLogs()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, int64(1), *logs[0].UserID)
	assert.Equal(t, "dep", logs[0].EventType)
	assert.Equal(t, "777", logs[0].TraderID)
	assert.Equal(t, "c1", logs[0].ClickID)
	assert.Equal(t, 30.0, logs[0].DepositSum)
	assert.Equal(t, "trader_id=777&dep=1&sumdep=30&totaldep=30&click_id=c1", logs[0].RawQuery)
}

func TestHandlePostbackUnknownTraderIsDropped(t *testing.T) {
	users := newFakeUserStore()
	uc := NewAccessUseCase(users, &fakeBroker{}, nopMetrics{}, logger.Nop(), 10)
	assert.NoError(t, uc.HandlePostback(context.Background(), Postback{
		TraderID: "nobody", Deposit: true, TotalDep: 50,
	}))

	// dropped postbacks are still recorded, without a user
	logs := users.postbackLogs()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].UserID)
	assert.Equal(t, "nobody", logs[0].TraderID)
}

func TestHandlePostbackMissingTraderID(t *testing.T) {
	uc := NewAccessUseCase(newFakeUserStore(), &fakeBroker{}, nopMetrics{}, logger.Nop(), 10)
	assert.Error(t, uc.HandlePostback(context.Background(), Postback{Registration: true}))
}

func TestCheckBalanceArbitraryTrader(t *testing.T) {
	users := newFakeUserStore()
	broker := &fakeBroker{registered: map[string]float64{"777": 5, "888": 200}}
	uc := NewAccessUseCase(users, broker, nopMetrics{}, logger.Nop(), 10)
	ctx := context.Background()

	seedUser(t, users, "a@b.c", true)
	_, err := uc.LinkBroker(ctx, "a@b.c", "777")
	require.NoError(t, err)

	// another trader's id: report its balance, do not touch the account
	st, err := uc.CheckBalance(ctx, "a@b.c", "888")
	require.NoError(t, err)
	assert.Equal(t, 200.0, st.Balance)
	u, err := users.ByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 5.0, u.TotalDeposit)

	// the linked id: the stored total follows the live one
	broker.registered["777"] = 60
	st, err = uc.CheckBalance(ctx, "a@b.c", "777")
	require.NoError(t, err)
	assert.Equal(t, 60.0, st.Balance)
	assert.True(t, st.CanAccess)
	u, err = users.ByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 60.0, u.TotalDeposit)
	assert.Equal(t, models.AccessUnlimitedMain, u.AccessLevel)
}

func TestPostbackParsing(t *testing.T) {
	assert.True(t, ParsePostbackValue("1"))
	assert.True(t, ParsePostbackValue("true"))
	assert.True(t, ParsePostbackValue(" TRUE "))
	assert.False(t, ParsePostbackValue("0"))
	assert.False(t, ParsePostbackValue(""))
	assert.False(t, ParsePostbackValue("yes"))

	assert.Equal(t, 49.5, ParsePostbackAmount("49.5"))
	assert.Equal(t, 0.0, ParsePostbackAmount(""))
	assert.Equal(t, 0.0, ParsePostbackAmount("abc"))
}

func TestPostbackAction(t *testing.T) {
	assert.Equal(t, "ftd", Postback{FirstDeposit: true, Deposit: true}.Action())
	assert.Equal(t, "dep", Postback{Deposit: true}.Action())
	assert.Equal(t, "conf", Postback{Confirmation: true}.Action())
	assert.Equal(t, "reg", Postback{Registration: true}.Action())
	assert.Equal(t, "unknown", Postback{}.Action())
}
