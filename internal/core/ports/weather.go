// Package ports defines the interfaces between the core retrieval logic and
// the adapters around it: the upstream weather API, the relational
// observation store, the persistence queue, and the generic byte cache.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
)

// ErrObservationsIncomplete is returned by ObservationStore.LookupRange when
// at least one day of the requested range has no stored observation.
// Partial coverage is treated as a full miss: the caller refetches the whole
// range rather than stitching cached and fresh data together.
var ErrObservationsIncomplete = errors.New("observations incomplete for requested range")

// WeatherService is the primary port driven by the HTTP layer.
type WeatherService interface {
	// GetWeather answers one weather query, from the observation store when
	// every requested day is already present, otherwise from the upstream API.
	GetWeather(ctx context.Context, query domain.WeatherQuery) (*domain.WeatherBundle, error)

	// SearchCities returns city-name suggestions for an autocomplete prefix.
	SearchCities(ctx context.Context, query string) ([]CityMatch, error)
}

// WeatherProvider is the secondary port to the upstream weather API.
// Implementations fail with *domain.UpstreamError on any non-success HTTP
// status and do not retry.
type WeatherProvider interface {
	// Search returns candidate city matches for a free-text query.
	Search(ctx context.Context, city string) ([]CityMatch, error)

	// FetchHistory returns per-day records for [start, end]. The span must
	// respect the API's per-call day limit; longer ranges are split by the
	// caller.
	FetchHistory(ctx context.Context, city string, start, end time.Time) (*ProviderResponse, error)

	// FetchForecast returns the API's fixed forecast window: days entries
	// starting today, regardless of the caller's requested range.
	FetchForecast(ctx context.Context, city string, days int) (*ProviderResponse, error)
}

// ProviderResponse is one upstream call's worth of parsed weather data.
type ProviderResponse struct {
	// Location is the resolved place name for the query
	Location string

	// Days holds the per-day records in chronological order
	Days []domain.DayRecord
}

// CityMatch is one autocomplete candidate from the upstream search endpoint.
type CityMatch struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ObservationStore is the persistent weather cache keyed by (city, date).
type ObservationStore interface {
	// LookupRange returns the stored observations for every day of the range,
	// ordered by date. It returns ErrObservationsIncomplete unless the stored
	// row count equals the range's calendar-day count.
	LookupRange(ctx context.Context, city string, r domain.DateRange) ([]domain.DailyObservation, error)

	// StoreObservations inserts a batch, silently skipping rows that would
	// violate the (city, date) uniqueness constraint. Re-storing an already
	// persisted batch is a no-op.
	StoreObservations(ctx context.Context, observations []domain.DailyObservation) error
}

// PersistQueue is the outbound hand-off for freshly fetched observations.
// Enqueue is fire-and-forget: the request path never waits on, nor fails
// because of, persistence outcomes.
type PersistQueue interface {
	Enqueue(job PersistJob)
}

// PersistJob carries one batch of observations to the persistence worker.
type PersistJob struct {
	// ID identifies the job in logs
	ID string

	// Observations is the batch to insert
	Observations []domain.DailyObservation
}

// CacheService is a generic byte cache used for memoizing city search
// responses. Implementations return ErrCacheMiss from Get when the key is
// absent; the concrete sentinel lives with the cache implementations.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
