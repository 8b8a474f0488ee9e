// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"time"

	"github.com/okarpenko/weather-range-service/internal/core/ports"
	"github.com/okarpenko/weather-range-service/internal/infrastructure/circuitbreaker"
)

// breakerProvider guards every upstream weather API call with one shared
// circuit breaker, so search, history, and forecast failures all count
// against the same upstream health.
type breakerProvider struct {
	provider ports.WeatherProvider
	breaker  *circuitbreaker.Breaker
}

func newBreakerProvider(provider ports.WeatherProvider, breaker *circuitbreaker.Breaker) ports.WeatherProvider {
	return &breakerProvider{
		provider: provider,
		breaker:  breaker,
	}
}

func (p *breakerProvider) Search(ctx context.Context, city string) ([]ports.CityMatch, error) {
	var result []ports.CityMatch

	err := p.breaker.Execute(ctx, "search", func() error {
		var err error
		result, err = p.provider.Search(ctx, city)

		return err
	})

	return result, err
}

func (p *breakerProvider) FetchHistory(ctx context.Context, city string, start, end time.Time) (*ports.ProviderResponse, error) {
	var result *ports.ProviderResponse

	err := p.breaker.Execute(ctx, "fetch-history", func() error {
		var err error
		result, err = p.provider.FetchHistory(ctx, city, start, end)

		return err
	})

	return result, err
}

func (p *breakerProvider) FetchForecast(ctx context.Context, city string, days int) (*ports.ProviderResponse, error) {
	var result *ports.ProviderResponse

	err := p.breaker.Execute(ctx, "fetch-forecast", func() error {
		var err error
		result, err = p.provider.FetchForecast(ctx, city, days)

		return err
	})

	return result, err
}
