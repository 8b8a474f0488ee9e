package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// ErrCacheMiss indicates a cache key was not found.
var ErrCacheMiss = redis.Nil

// RedisCache implements the cache service on Redis, shared across service
// instances so autocomplete memoization survives restarts and scale-out.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection and pool settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
//
// Parameters:
//   - cfg: Redis connection configuration
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.CacheService: Redis cache implementation
//   - error: Connection error if Redis is unavailable
func NewRedisCache(cfg Config, logger *zap.Logger) (ports.CacheService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		logger: logger,
	}, nil
}

// Get retrieves a value from Redis, returning ErrCacheMiss when absent.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	result, err := r.client.Get(ctx, key).Bytes()

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		r.logger.Debug("cache miss", zap.String("key", key))

		return nil, ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)
		r.logger.Error("cache get error", zap.String("key", key), zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	r.logger.Debug("cache hit", zap.String("key", key))

	return result, nil
}

// Set stores a value with the given TTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
	)

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache set error", zap.String("key", key), zap.Error(err))

		return err
	}

	return nil
}

// Delete removes a key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	if err := r.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache delete error", zap.String("key", key), zap.Error(err))

		return err
	}

	return nil
}

// Clear flushes the whole Redis database backing the cache.
func (r *RedisCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "RedisCache.Clear")

	defer span.End()

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache clear error", zap.Error(err))

		return err
	}

	r.logger.Info("cache cleared")

	return nil
}

// Close closes the Redis client connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
