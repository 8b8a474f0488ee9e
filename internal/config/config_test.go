package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "test-key")

	cfg, err := Load()

	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, "test-key", cfg.Weather.APIKey)
	assert.Equal(t, "https://api.weatherapi.com/v1", cfg.Weather.BaseURL)
	assert.Equal(t, "en", cfg.Weather.Language)
	assert.Equal(t, 30, cfg.Weather.MaxHistoryDays)
	assert.Equal(t, 14, cfg.Weather.ForecastDays)
	assert.Equal(t, 10*time.Minute, cfg.Weather.SearchCacheTTL)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 64, cfg.Queue.BufferSize)
	assert.Equal(t, "weather-range-service", cfg.Observability.ServiceName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "test-key")
	t.Setenv("PORT", "9999")
	t.Setenv("WEATHER_MAX_HISTORY_DAYS", "10")
	t.Setenv("WEATHER_FORECAST_DAYS", "7")
	t.Setenv("WEATHER_SEARCH_CACHE_TTL", "1m30s")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PERSIST_QUEUE_SIZE", "256")

	cfg, err := Load()

	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Weather.MaxHistoryDays)
	assert.Equal(t, 7, cfg.Weather.ForecastDays)
	assert.Equal(t, 90*time.Second, cfg.Weather.SearchCacheTTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 256, cfg.Queue.BufferSize)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_API_KEY")
}

func TestLoad_RejectsNonPositiveSpans(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "test-key")
	t.Setenv("WEATHER_MAX_HISTORY_DAYS", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_MAX_HISTORY_DAYS")
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "test-key")
	t.Setenv("WEATHER_FORECAST_DAYS", "lots")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Weather.ForecastDays)
}
