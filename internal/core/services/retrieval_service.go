// Package services implements the weather retrieval logic: classifying a
// requested date range against today, dispatching to the historical and
// forecast retrievers, checking the observation store first, and handing
// fresh results to the persistence queue.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

const searchCacheKeyPrefix = "city-search:"

// Config carries the upstream API limits and cache tuning for the service.
type Config struct {
	// MaxHistoryDays is the day step the history endpoint accepts per call;
	// longer ranges are split into sub-ranges of at most this step
	MaxHistoryDays int

	// ForecastDays is the fixed forecast window the API returns from today,
	// a server-side setting rather than a per-query value
	ForecastDays int

	// SearchCacheTTL bounds how long city search responses are memoized
	SearchCacheTTL time.Duration
}

type retrievalService struct {
	provider ports.WeatherProvider
	store    ports.ObservationStore
	queue    ports.PersistQueue
	cache    ports.CacheService
	clock    clockwork.Clock
	cfg      Config
	logger   *zap.Logger
}

// NewWeatherService wires the retrieval coordinator. The clock is injected
// so "today" is deterministic under test; production passes a real clock.
func NewWeatherService(
	provider ports.WeatherProvider,
	store ports.ObservationStore,
	queue ports.PersistQueue,
	cache ports.CacheService,
	clock clockwork.Clock,
	cfg Config,
	logger *zap.Logger,
) ports.WeatherService {
	return &retrievalService{
		provider: provider,
		store:    store,
		queue:    queue,
		cache:    cache,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// GetWeather answers one query. The observation store is consulted first;
// only when at least one requested day is missing does the upstream API get
// called, and then always for the full range.
func (s *retrievalService) GetWeather(ctx context.Context, query domain.WeatherQuery) (*domain.WeatherBundle, error) {
	if err := query.Range.Validate(); err != nil {
		return nil, &domain.WeatherError{
			Code:    "INVALID_RANGE",
			Message: "The requested date range is invalid",
			Cause:   err,
		}
	}

	today := domain.Day(s.clock.Now())

	if bundle := s.fromStore(ctx, query, today); bundle != nil {
		s.logger.Info("serving weather from observation store",
			zap.String("city", query.City),
			zap.Int("days", query.Range.Days()))

		return bundle, nil
	}

	bundle, err := s.fetch(ctx, query, today)

	if err != nil {
		s.logger.Error("weather retrieval failed",
			zap.String("city", query.City),
			zap.Time("start", query.Range.Start),
			zap.Time("end", query.Range.End),
			zap.Error(err))

		return nil, err
	}

	s.enqueuePersist(query.City, bundle)

	return bundle, nil
}

// fetch classifies the range against today and runs the matching retrievers.
// In the straddling case both branches run; a failure in either fails the
// whole request, mirroring the no-partial-results policy.
func (s *retrievalService) fetch(ctx context.Context, query domain.WeatherQuery, today time.Time) (*domain.WeatherBundle, error) {
	bundle := &domain.WeatherBundle{}

	wantHistorical := !query.Range.Start.After(today)
	wantForecast := query.Range.End.After(today)

	if wantHistorical {
		resp, err := s.fetchHistorical(ctx, query, today)

		if err != nil {
			return nil, err
		}

		bundle.Historical = resp.Days
		bundle.Location = resp.Location
	}

	if wantForecast {
		resp, err := s.fetchForecast(ctx, query, today)

		if err != nil {
			return nil, err
		}

		bundle.Forecast = resp.Days

		if bundle.Location == "" {
			bundle.Location = resp.Location
		}
	}

	return bundle, nil
}

// fromStore returns a bundle built from persisted observations, or nil when
// any requested day is absent or the store is unavailable. A store outage
// degrades to an upstream fetch instead of failing the request.
func (s *retrievalService) fromStore(ctx context.Context, query domain.WeatherQuery, today time.Time) *domain.WeatherBundle {
	rows, err := s.store.LookupRange(ctx, query.City, query.Range)

	if err != nil {
		if !errors.Is(err, ports.ErrObservationsIncomplete) {
			s.logger.Warn("observation store lookup failed, falling back to API",
				zap.String("city", query.City),
				zap.Error(err))
		}

		return nil
	}

	bundle := &domain.WeatherBundle{
		Location:  query.City,
		FromCache: true,
	}

	for _, row := range rows {
		rec := domain.DayRecord{
			Date:     row.Date,
			AvgTempC: row.Temperature,
		}

		if row.Date.After(today) {
			bundle.Forecast = append(bundle.Forecast, rec)
		} else {
			bundle.Historical = append(bundle.Historical, rec)
		}
	}

	return bundle
}

// enqueuePersist hands the fetched records to the persistence worker.
// The response does not wait on the insert; duplicate rows are absorbed by
// the store's (city, date) conflict handling.
func (s *retrievalService) enqueuePersist(city string, bundle *domain.WeatherBundle) {
	records := bundle.Records()

	if len(records) == 0 {
		return
	}

	observations := make([]domain.DailyObservation, 0, len(records))

	for _, rec := range records {
		observations = append(observations, domain.NewDailyObservation(city, rec))
	}

	s.queue.Enqueue(ports.PersistJob{
		ID:           uuid.NewString(),
		Observations: observations,
	})
}

// SearchCities proxies the upstream search endpoint with short-lived
// memoization, since autocomplete fires on every keystroke.
func (s *retrievalService) SearchCities(ctx context.Context, query string) ([]ports.CityMatch, error) {
	key := searchCacheKeyPrefix + strings.ToLower(strings.TrimSpace(query))

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var matches []ports.CityMatch

		if err := json.Unmarshal(cached, &matches); err == nil {
			return matches, nil
		}

		s.logger.Warn("dropping undecodable search cache entry", zap.String("key", key))
		_ = s.cache.Delete(ctx, key)
	}

	matches, err := s.provider.Search(ctx, query)

	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(matches); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.cfg.SearchCacheTTL); err != nil {
			s.logger.Debug("search cache set failed", zap.String("key", key), zap.Error(err))
		}
	}

	return matches, nil
}
