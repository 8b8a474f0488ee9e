// Package config provides centralized configuration management for the
// weather range service. It loads configuration from environment variables
// (optionally seeded from a .env file) with sensible defaults for local
// development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration settings for the weather range service.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Weather       WeatherConfig
	Queue         QueueConfig
}

// ServerConfig contains HTTP server settings and timeouts.
type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig contains settings for the Redis-backed search cache. When
// disabled the service falls back to an in-process cache.
type RedisConfig struct {
	Enabled      bool
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

// DatabaseConfig contains PostgreSQL connection settings for the
// observation store.
type DatabaseConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// WeatherConfig contains settings for the upstream weather API.
type WeatherConfig struct {
	// APIKey authenticates every upstream call; it has no default
	APIKey string

	// BaseURL is the API root, without a trailing slash
	BaseURL string

	// Language is passed through as the 'lang' parameter on every call
	Language string

	// MaxHistoryDays is the largest day span one history call may cover;
	// longer ranges are split into consecutive calls
	MaxHistoryDays int

	// ForecastDays is the forecast window requested from the upstream
	ForecastDays int

	// SearchCacheTTL bounds how long city search responses are memoized
	SearchCacheTTL time.Duration

	// HTTPTimeout bounds one upstream HTTP call
	HTTPTimeout time.Duration
}

// QueueConfig contains settings for the persistence queue.
type QueueConfig struct {
	// BufferSize is the number of persist jobs held before Enqueue drops
	BufferSize int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present, matching how the service runs in
// development; real environment variables win over file entries.
//
// Returns:
//   - *Config: Configuration with values from environment or defaults
//   - error: Validation error when a required setting is missing
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{
			Host:                  getEnv("DB_HOST", "localhost"),
			Port:                  getEnvAsInt("DB_PORT", 5432),
			User:                  getEnv("DB_USER", "weather"),
			Password:              getEnv("DB_PASSWORD", ""),
			Database:              getEnv("DB_NAME", "weather_range"),
			SSLMode:               getEnv("DB_SSLMODE", "disable"),
			MaxConnections:        25,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "weather-range-service",
			ServiceVersion: getEnv("VERSION", "1.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:     0.1,
		},
		Weather: WeatherConfig{
			APIKey:         getEnv("WEATHER_API_KEY", ""),
			BaseURL:        getEnv("WEATHER_API_BASE_URL", "https://api.weatherapi.com/v1"),
			Language:       getEnv("WEATHER_API_LANG", "en"),
			MaxHistoryDays: getEnvAsInt("WEATHER_MAX_HISTORY_DAYS", 30),
			ForecastDays:   getEnvAsInt("WEATHER_FORECAST_DAYS", 14),
			SearchCacheTTL: getEnvAsDuration("WEATHER_SEARCH_CACHE_TTL", 10*time.Minute),
			HTTPTimeout:    30 * time.Second,
		},
		Queue: QueueConfig{
			BufferSize: getEnvAsInt("PERSIST_QUEUE_SIZE", 64),
		},
	}

	if cfg.Weather.APIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY is required")
	}

	if cfg.Weather.MaxHistoryDays < 1 {
		return nil, fmt.Errorf("WEATHER_MAX_HISTORY_DAYS must be at least 1, got %d", cfg.Weather.MaxHistoryDays)
	}

	if cfg.Weather.ForecastDays < 1 {
		return nil, fmt.Errorf("WEATHER_FORECAST_DAYS must be at least 1, got %d", cfg.Weather.ForecastDays)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a
// fallback default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a
// fallback default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// with a fallback default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return defaultValue
}
