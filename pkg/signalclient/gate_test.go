package signalclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveGateState(t *testing.T) {
	cases := []struct {
		name string
		in   AccessStatus
		want GateState
	}{
		{"fresh account", AccessStatus{}, GateEmailUnverified},
		{"verified, no broker", AccessStatus{EmailVerified: true}, GateBrokerUnlinked},
		{"broker linked, low deposit", AccessStatus{EmailVerified: true, BrokerVerified: true}, GateDepositInsufficient},
		{"full access", AccessStatus{CanAccess: true, EmailVerified: true, BrokerVerified: true, HasMinDeposit: true, Balance: 50}, GateFullAccess},
		// access without the deposit flag still lands on the deposit step
		{"granted but below minimum", AccessStatus{CanAccess: true, EmailVerified: true, BrokerVerified: true}, GateDepositInsufficient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveGateState(&tc.in))
		})
	}
}

func TestGateCheckBelowMinimumDeposit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_verified":true,"pocket_option_verified":true,"has_min_deposit":false,"can_access":false,"balance":5,"min_required":10,"message":"Balance $5, minimum $10"}`))
	}))
	defer srv.Close()

	gate := NewGate(New(srv.URL, WithToken("tok")))
	state, status, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GateDepositInsufficient, state)
	assert.Equal(t, "Balance $5, minimum $10", status.Message)
	assert.Equal(t, 5.0, status.Balance)
	assert.Equal(t, 10.0, status.MinRequired)
}

func TestGateStateOrdering(t *testing.T) {
	assert.True(t, GateEmailUnverified < GateBrokerUnlinked)
	assert.True(t, GateBrokerUnlinked < GateDepositInsufficient)
	assert.True(t, GateDepositInsufficient < GateFullAccess)
	assert.False(t, GateDepositInsufficient.Allowed())
	assert.True(t, GateFullAccess.Allowed())
}

func TestGateCheckFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gate := NewGate(New(srv.URL, WithToken("tok")))
	state, status, err := gate.Check(context.Background())
	require.Error(t, err)
	assert.Nil(t, status)
	assert.False(t, state.Allowed())
}

func TestGateCheckNetworkFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	gate := NewGate(New(srv.URL))
	state, _, err := gate.Check(context.Background())
	require.Error(t, err)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.False(t, state.Allowed())
}

func TestGateCheckAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/can-access-signals", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"can_access":true,"is_verified":true,"pocket_option_verified":true,"has_min_deposit":true,"balance":75,"min_required":10,"access_level":"unlimited_main","message":"Unlimited signals on major currency pairs"}`))
	}))
	defer srv.Close()

	gate := NewGate(New(srv.URL, WithToken("tok")))
	state, status, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GateFullAccess, state)
	assert.Equal(t, 75.0, status.Balance)
}
