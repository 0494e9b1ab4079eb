package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache contract used across the application.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// SetNX sets the key only if it does not exist. Used for idempotency
	// markers; returns true when the key was set by this call.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Close() error
}
