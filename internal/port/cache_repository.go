package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type CacheRepository interface {
	// Get returns the raw value stored under key, or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}
