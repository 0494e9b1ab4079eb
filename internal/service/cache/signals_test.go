package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
	pkgcache "tradevision/pkg/cache"
	"tradevision/pkg/logger"
)

type countMetrics struct {
	ops map[string]int
}

func (m *countMetrics) RecordCacheOp(result string) { m.ops[result]++ }
func (m *countMetrics) RecordSignalIngested(string, string) {}
func (m *countMetrics) RecordDuplicate(string)              {}
func (m *countMetrics) RecordError(string)                  {}
func (m *countMetrics) RecordBrokerCheck(string)            {}
func (m *countMetrics) RecordPostback(string, string)       {}
func (m *countMetrics) RecordVerdict(string)                {}

func newTestCache(t *testing.T) (*SignalCache, *countMetrics) {
	t.Helper()
	mem := pkgcache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	m := &countMetrics{ops: make(map[string]int)}
	return NewSignalCache(mem, m, logger.Nop()), m
}

func TestSignalCacheRoundTrip(t *testing.T) {
	sc, m := newTestCache(t)
	ctx := context.Background()

	_, err := sc.Latest(ctx, "EURUSD", "5m")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.Equal(t, 1, m.ops["miss"])

	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	sc.Store(ctx, &models.Signal{
		Symbol: "EURUSD", Timeframe: "5m", Direction: models.DirectionUp,
		Price: 1.0854, Timestamp: ts, EnterAt: ts, ExpireAt: ts.Add(5 * time.Minute),
	})

	s, err := sc.Latest(ctx, "eurusd", "5m")
	require.NoError(t, err, "lookups are case-insensitive on symbol")
	assert.Equal(t, 1.0854, s.Price)
	assert.Equal(t, 1, m.ops["hit"])

	sc.Invalidate(ctx, "EURUSD", "5m")
	_, err = sc.Latest(ctx, "EURUSD", "5m")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestClaimDelivery(t *testing.T) {
	sc, _ := newTestCache(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	ok, err := sc.ClaimDelivery(ctx, "EURUSD", "5m", ts)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sc.ClaimDelivery(ctx, "EURUSD", "5m", ts)
	require.NoError(t, err)
	assert.False(t, ok, "second delivery of the same signal is a duplicate")

	// a different timestamp is a different delivery
	ok, err = sc.ClaimDelivery(ctx, "EURUSD", "5m", ts.Add(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)

	// so is a different pair
	ok, err = sc.ClaimDelivery(ctx, "GBPJPY", "5m", ts)
	require.NoError(t, err)
	assert.True(t, ok)
}
