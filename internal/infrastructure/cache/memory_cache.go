// Package cache provides the byte cache used to memoize city search
// responses: a Redis-backed implementation for multi-instance deployments
// and an in-memory fallback for development and single-node setups.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// MemoryCache is an in-process cache built on go-cache. It is the fallback
// when Redis is disabled or unreachable; entries do not survive restarts
// and are not shared between instances.
type MemoryCache struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryCache creates an in-memory cache.
//
// Parameters:
//   - defaultTTL: TTL applied when Set is called with a zero duration
//   - cleanupInterval: how often expired entries are swept
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.CacheService: In-memory cache implementation
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) ports.CacheService {
	return &MemoryCache{
		cache:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

// Get retrieves a value by key, returning ErrCacheMiss when absent.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	if value, found := m.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		m.logger.Debug("memory cache hit", zap.String("key", key))

		return value.([]byte), nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	m.logger.Debug("memory cache miss", zap.String("key", key))

	return nil, ErrCacheMiss
}

// Set stores a value under the key for the given TTL.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
	)

	m.cache.Set(key, value, ttl)

	return nil
}

// Delete removes the key if present.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	m.cache.Delete(key)

	return nil
}

// Clear drops every entry.
func (m *MemoryCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Clear")

	defer span.End()

	m.cache.Flush()
	m.logger.Info("memory cache cleared")

	return nil
}
