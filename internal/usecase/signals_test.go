package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	svccache "tradevision/internal/service/cache"
	"tradevision/pkg/cache"
	"tradevision/pkg/logger"
)

func newTestSignalsUseCase(t *testing.T, store domrepo.SignalStore, pub domrepo.EventPublisher) *SignalsUseCase {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	sc := svccache.NewSignalCache(mem, nopMetrics{}, logger.Nop())
	return NewSignalsUseCase(store, sc, pub, nil, nopMetrics{}, logger.Nop(), SignalsConfig{
		Symbols:    []string{"EURUSD", "GBPJPY"},
		EnterDelay: time.Minute,
	})
}

func TestIngestValidation(t *testing.T) {
	uc := newTestSignalsUseCase(t, &fakeSignalStore{}, &capturePublisher{})
	ctx := context.Background()
	base := IngestParams{Symbol: "EURUSD", Timeframe: "5m", Direction: "up", Price: 1.1}

	cases := []struct {
		name   string
		mutate func(*IngestParams)
	}{
		{"unknown symbol", func(p *IngestParams) { p.Symbol = "BTCUSD" }},
		{"unknown timeframe", func(p *IngestParams) { p.Timeframe = "2w" }},
		{"bad direction", func(p *IngestParams) { p.Direction = "sideways" }},
		{"zero price", func(p *IngestParams) { p.Price = 0 }},
		{"negative price", func(p *IngestParams) { p.Price = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := uc.Ingest(ctx, p)
			assert.ErrorIs(t, err, ErrSignalRejected)
		})
	}
}

func TestIngestDerivesWindowAndPublishes(t *testing.T) {
	store := &fakeSignalStore{}
	pub := &capturePublisher{}
	uc := newTestSignalsUseCase(t, store, pub)

	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	s, err := uc.Ingest(context.Background(), IngestParams{
		Symbol: "eurusd", Timeframe: "5m", Direction: "buy", Price: 1.0854, Timestamp: ts,
	})
	require.NoError(t, err)

	assert.Equal(t, "EURUSD", s.Symbol)
	assert.Equal(t, models.DirectionUp, s.Direction)
	assert.Equal(t, ts.Add(time.Minute), s.EnterAt)
	assert.Equal(t, ts.Add(time.Minute).Add(5*time.Minute), s.ExpireAt)
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, models.EventSignalCreated, pub.events[0].Type)
}

func TestIngestDuplicateDelivery(t *testing.T) {
	store := &fakeSignalStore{}
	pub := &capturePublisher{}
	uc := newTestSignalsUseCase(t, store, pub)

	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	p := IngestParams{Symbol: "EURUSD", Timeframe: "5m", Direction: "up", Price: 1.1, Timestamp: ts}

	_, err := uc.Ingest(context.Background(), p)
	require.NoError(t, err)

	_, err = uc.Ingest(context.Background(), p)
	assert.ErrorIs(t, err, ErrDuplicateSignal)
	assert.Equal(t, 1, pub.count(), "duplicates must not publish")
}

func TestLatestFallsBackToStore(t *testing.T) {
	store := &fakeSignalStore{}
	uc := newTestSignalsUseCase(t, store, &capturePublisher{})

	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Insert(context.Background(), &models.Signal{
		Symbol: "EURUSD", Timeframe: "5m", Direction: models.DirectionDown,
		Price: 1.2, Timestamp: ts, EnterAt: ts, ExpireAt: ts.Add(5 * time.Minute),
	}))

	s, err := uc.Latest(context.Background(), "eurusd", "5m")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionDown, s.Direction)

	// a second read is served from cache even if the store empties
	store.mu.Lock()
	store.signals = nil
	store.mu.Unlock()
	s, err = uc.Latest(context.Background(), "EURUSD", "5m")
	require.NoError(t, err)
	assert.Equal(t, 1.2, s.Price)
}

func TestLatestUnknownPair(t *testing.T) {
	uc := newTestSignalsUseCase(t, &fakeSignalStore{}, &capturePublisher{})

	_, err := uc.Latest(context.Background(), "BTCUSD", "5m")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	_, err = uc.Latest(context.Background(), "EURUSD", "9m")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestSymbolsOrderPreserved(t *testing.T) {
	uc := newTestSignalsUseCase(t, &fakeSignalStore{}, &capturePublisher{})
	assert.Equal(t, []string{"EURUSD", "GBPJPY"}, uc.Symbols())
}
