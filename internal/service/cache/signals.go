package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradevision/internal/domain/models"
	domain "tradevision/internal/domain/repository"
	"tradevision/pkg/cache"
	"tradevision/pkg/logger"
)

const (
	lastSignalTTL  = 5 * time.Minute
	idempotencyTTL = time.Hour
)

// SignalCache keeps the latest signal per (symbol, timeframe) and the
// idempotency markers for webhook deliveries.
type SignalCache struct {
	store   cache.Service
	metrics domain.Metrics
	log     *logger.Logger
}

func NewSignalCache(store cache.Service, metrics domain.Metrics, log *logger.Logger) *SignalCache {
	return &SignalCache{store: store, metrics: metrics, log: log}
}

func lastSignalKey(symbol, tf string) string {
	return fmt.Sprintf("last_signal:%s:%s", strings.ToUpper(symbol), tf)
}

func idempotencyKey(symbol, tf string, ts time.Time) string {
	return fmt.Sprintf("signal:%s:%s:%d", strings.ToUpper(symbol), tf, ts.UnixMilli())
}

// Latest returns the cached latest signal, or domain.ErrNotFound on miss.
func (c *SignalCache) Latest(ctx context.Context, symbol, tf string) (*models.Signal, error) {
	var s models.Signal
	if err := c.store.Get(ctx, lastSignalKey(symbol, tf), &s); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			c.metrics.RecordCacheOp("miss")
			return nil, domain.ErrNotFound
		}
		c.metrics.RecordCacheOp("error")
		return nil, err
	}
	c.metrics.RecordCacheOp("hit")
	return &s, nil
}

// Store caches s as the latest signal for its pair. Failures are logged,
// not returned; the database stays authoritative.
func (c *SignalCache) Store(ctx context.Context, s *models.Signal) {
	if err := c.store.Set(ctx, lastSignalKey(s.Symbol, s.Timeframe), s, lastSignalTTL); err != nil {
		c.metrics.RecordError("cache_set")
		c.log.Warn("cache latest signal",
			logger.String("symbol", s.Symbol),
			logger.String("timeframe", s.Timeframe),
			logger.Error(err))
	}
}

// Invalidate drops the cached latest signal for a pair.
func (c *SignalCache) Invalidate(ctx context.Context, symbol, tf string) {
	if err := c.store.Delete(ctx, lastSignalKey(symbol, tf)); err != nil {
		c.metrics.RecordError("cache_delete")
	}
}

// ClaimDelivery marks a webhook delivery as seen. It returns false when
// the same (symbol, timeframe, timestamp) was already claimed within the
// idempotency window.
func (c *SignalCache) ClaimDelivery(ctx context.Context, symbol, tf string, ts time.Time) (bool, error) {
	ok, err := c.store.SetNX(ctx, idempotencyKey(symbol, tf, ts), "1", idempotencyTTL)
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return ok, nil
}
