// Package cache is the application-side view of the key/value cache: JSON
// snapshots under namespaced keys, with every failure downgraded to a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

// Layer wraps a CacheRepository behind an on/off switch. It never returns an
// error: the database stays the source of truth.
type Layer struct {
	repo    port.CacheRepository
	enabled bool
	logger  *zap.Logger
}

func NewLayer(repo port.CacheRepository, enabled bool, logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layer{
		repo:    repo,
		enabled: enabled && repo != nil,
		logger:  logger,
	}
}

func (l *Layer) Enabled() bool { return l.enabled }

// Get decodes the value under key into dst and reports whether it was a hit.
func (l *Layer) Get(ctx context.Context, key string, dst any) bool {
	if !l.enabled {
		return false
	}
	raw, err := l.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, port.ErrCacheMiss) {
			l.warn("cache get failed", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		l.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores a JSON snapshot of value under key.
func (l *Layer) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !l.enabled {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn("cannot encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := l.repo.Set(ctx, key, raw, ttl); err != nil {
		l.warn("cache set failed", key, err)
	}
}

func (l *Layer) Delete(ctx context.Context, keys ...string) {
	if !l.enabled || len(keys) == 0 {
		return
	}
	if err := l.repo.Delete(ctx, keys...); err != nil {
		l.logger.Warn("cache delete failed",
			zap.Strings("keys", keys),
			zap.Error(errors.Join(domain.ErrCacheUnavailable, err)))
	}
}

func (l *Layer) DeletePrefix(ctx context.Context, prefix string) {
	if !l.enabled {
		return
	}
	if err := l.repo.DeletePrefix(ctx, prefix); err != nil {
		l.warn("cache prefix delete failed", prefix+"*", err)
	}
}

func (l *Layer) warn(msg, key string, err error) {
	l.logger.Warn(msg, zap.String("key", key), zap.Error(errors.Join(domain.ErrCacheUnavailable, err)))
}
