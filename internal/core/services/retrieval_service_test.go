// Package services contains unit tests for the retrieval coordinator.
package services

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// MockWeatherProvider is a mock implementation of the WeatherProvider interface.
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) Search(ctx context.Context, city string) ([]ports.CityMatch, error) {
	args := m.Called(ctx, city)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]ports.CityMatch), args.Error(1)
}

func (m *MockWeatherProvider) FetchHistory(ctx context.Context, city string, start, end time.Time) (*ports.ProviderResponse, error) {
	args := m.Called(ctx, city, start, end)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ports.ProviderResponse), args.Error(1)
}

func (m *MockWeatherProvider) FetchForecast(ctx context.Context, city string, days int) (*ports.ProviderResponse, error) {
	args := m.Called(ctx, city, days)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ports.ProviderResponse), args.Error(1)
}

// MockObservationStore is a mock implementation of the ObservationStore interface.
type MockObservationStore struct {
	mock.Mock
}

func (m *MockObservationStore) LookupRange(ctx context.Context, city string, r domain.DateRange) ([]domain.DailyObservation, error) {
	args := m.Called(ctx, city, r)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.DailyObservation), args.Error(1)
}

func (m *MockObservationStore) StoreObservations(ctx context.Context, observations []domain.DailyObservation) error {
	args := m.Called(ctx, observations)
	return args.Error(0)
}

// capturingQueue records enqueued persist jobs for assertions.
type capturingQueue struct {
	jobs []ports.PersistJob
}

func (q *capturingQueue) Enqueue(job ports.PersistJob) {
	q.jobs = append(q.jobs, job)
}

// MockCacheService is a mock implementation of the CacheService interface.
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var testToday = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

type fixture struct {
	provider *MockWeatherProvider
	store    *MockObservationStore
	queue    *capturingQueue
	cache    *MockCacheService
	service  ports.WeatherService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		provider: new(MockWeatherProvider),
		store:    new(MockObservationStore),
		queue:    &capturingQueue{},
		cache:    new(MockCacheService),
	}

	// Clock frozen mid-day so "today" classification is stable.
	clock := clockwork.NewFakeClockAt(testToday.Add(13 * time.Hour))

	f.service = NewWeatherService(f.provider, f.store, f.queue, f.cache, clock, Config{
		MaxHistoryDays: 30,
		ForecastDays:   14,
		SearchCacheTTL: time.Minute,
	}, zap.NewNop())

	return f
}

func dayOffset(offset int) time.Time {
	return testToday.AddDate(0, 0, offset)
}

func providerDays(from, to int) []domain.DayRecord {
	var days []domain.DayRecord

	for i := from; i <= to; i++ {
		days = append(days, domain.DayRecord{
			Date:      dayOffset(i),
			AvgTempC:  float64(i),
			Condition: "Clear",
		})
	}

	return days
}

func query(startOffset, endOffset int) domain.WeatherQuery {
	return domain.WeatherQuery{
		City:  "Kyiv",
		Range: domain.DateRange{Start: dayOffset(startOffset), End: dayOffset(endOffset)},
	}
}

func missAll(f *fixture) {
	f.store.On("LookupRange", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ports.ErrObservationsIncomplete)
}

func TestGetWeather_HistoricalOnly(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	q := query(-7, -1)
	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-7), dayOffset(-1)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(-7, -1)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	assert.Empty(t, bundle.Forecast)
	require.Len(t, bundle.Historical, 7)
	assert.Equal(t, dayOffset(-7), bundle.Historical[0].Date)
	assert.Equal(t, dayOffset(-1), bundle.Historical[6].Date)
	assert.Equal(t, "Kyiv", bundle.Location)
	assert.False(t, bundle.FromCache)

	f.provider.AssertNotCalled(t, "FetchForecast", mock.Anything, mock.Anything, mock.Anything)
	f.provider.AssertExpectations(t)
}

func TestGetWeather_ForecastOnly(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	q := query(1, 7)
	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 13)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	assert.Empty(t, bundle.Historical)
	require.Len(t, bundle.Forecast, 7)
	assert.Equal(t, dayOffset(1), bundle.Forecast[0].Date)
	assert.Equal(t, dayOffset(7), bundle.Forecast[6].Date)

	f.provider.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetWeather_StraddlingRange(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	// start=today, end=today+7: historical branch answers for today alone,
	// the forecast branch for the seven days after it.
	q := query(0, 7)

	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(0), dayOffset(0)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 0)}, nil)
	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 13)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, bundle.Historical, 1)
	assert.Equal(t, dayOffset(0), bundle.Historical[0].Date)

	require.Len(t, bundle.Forecast, 7)
	assert.Equal(t, dayOffset(1), bundle.Forecast[0].Date)
	assert.Equal(t, dayOffset(7), bundle.Forecast[6].Date)

	assert.Len(t, bundle.Records(), 8)
	f.provider.AssertExpectations(t)
}

func TestGetWeather_ClampsHistoricalEndToToday(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	// end=today+3 straddles; the historical call must stop at today.
	q := query(-2, 3)

	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-2), dayOffset(0)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(-2, 0)}, nil)
	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 13)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, bundle.Historical, 3)
	assert.Len(t, bundle.Forecast, 3)
	f.provider.AssertExpectations(t)
}

func TestGetWeather_SplitsLongHistoricalRange(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	// 41 days with a 30-day step: two sequential history calls whose
	// results concatenate into one contiguous series.
	q := query(-45, -5)

	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-45), dayOffset(-15)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(-45, -15)}, nil).Once()
	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-14), dayOffset(-5)).
		Return(&ports.ProviderResponse{Location: "Lviv", Days: providerDays(-14, -5)}, nil).Once()

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, bundle.Historical, 41)
	assert.Equal(t, dayOffset(-45), bundle.Historical[0].Date)
	assert.Equal(t, dayOffset(-5), bundle.Historical[40].Date)

	// Location metadata comes from the first sub-call.
	assert.Equal(t, "Kyiv", bundle.Location)
	f.provider.AssertExpectations(t)
}

func TestGetWeather_ForecastFilterExcludesTodayAndOutOfRange(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	// Requested window is today+2..today+4; the raw window also contains
	// today and days past the range, all of which must be dropped.
	q := query(2, 4)

	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 13)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, bundle.Forecast, 3)
	assert.Equal(t, dayOffset(2), bundle.Forecast[0].Date)
	assert.Equal(t, dayOffset(4), bundle.Forecast[2].Date)
}

func TestGetWeather_ForecastBeyondWindowTruncatesSilently(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	// Range extends past the fixed 14-day window: the missing tail is
	// absent from the result, not an error.
	q := query(10, 20)

	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(0, 13)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, bundle.Forecast, 4)
	assert.Equal(t, dayOffset(10), bundle.Forecast[0].Date)
	assert.Equal(t, dayOffset(13), bundle.Forecast[3].Date)
}

func TestGetWeather_CacheHitSkipsProvider(t *testing.T) {
	f := newFixture(t)

	q := query(-3, -1)
	rows := []domain.DailyObservation{
		{City: "Kyiv", Date: dayOffset(-3), Temperature: 1.5},
		{City: "Kyiv", Date: dayOffset(-2), Temperature: 2.5},
		{City: "Kyiv", Date: dayOffset(-1), Temperature: 3.5},
	}

	f.store.On("LookupRange", mock.Anything, "Kyiv", q.Range).Return(rows, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	assert.True(t, bundle.FromCache)
	require.Len(t, bundle.Historical, 3)
	assert.InDelta(t, 1.5, bundle.Historical[0].AvgTempC, 1e-9)
	assert.Empty(t, f.queue.jobs, "cache hits must not re-enqueue persistence")

	f.provider.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "FetchForecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetWeather_CachedRowsClassifiedAgainstToday(t *testing.T) {
	f := newFixture(t)

	q := query(-1, 1)
	rows := []domain.DailyObservation{
		{City: "Kyiv", Date: dayOffset(-1), Temperature: 1.0},
		{City: "Kyiv", Date: dayOffset(0), Temperature: 2.0},
		{City: "Kyiv", Date: dayOffset(1), Temperature: 3.0},
	}

	f.store.On("LookupRange", mock.Anything, "Kyiv", q.Range).Return(rows, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	// Today itself belongs to the historical half.
	assert.Len(t, bundle.Historical, 2)
	assert.Len(t, bundle.Forecast, 1)
}

func TestGetWeather_StoreErrorFallsBackToProvider(t *testing.T) {
	f := newFixture(t)

	q := query(-2, -1)
	f.store.On("LookupRange", mock.Anything, "Kyiv", q.Range).
		Return(nil, assert.AnError)
	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-2), dayOffset(-1)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(-2, -1)}, nil)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, bundle.Historical, 2)
}

func TestGetWeather_EnqueuesPersistJob(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	q := query(-2, -1)
	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-2), dayOffset(-1)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: []domain.DayRecord{
			{Date: dayOffset(-2), AvgTempC: 4.44},
			{Date: dayOffset(-1), AvgTempC: 5.56},
		}}, nil)

	_, err := f.service.GetWeather(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.NotEmpty(t, job.ID)
	require.Len(t, job.Observations, 2)
	assert.Equal(t, "Kyiv", job.Observations[0].City)
	assert.InDelta(t, 4.4, job.Observations[0].Temperature, 1e-9)
	assert.InDelta(t, 5.6, job.Observations[1].Temperature, 1e-9)
}

func TestGetWeather_UpstreamErrorPropagates(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	q := query(-2, -1)
	upstreamErr := &domain.UpstreamError{StatusCode: 502, URL: "/history.json"}
	f.provider.On("FetchHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, upstreamErr)

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.Error(t, err)
	assert.Nil(t, bundle)
	assert.ErrorIs(t, err, error(upstreamErr))
	assert.Empty(t, f.queue.jobs)
}

func TestGetWeather_StraddlingFailsWholeRequestOnForecastError(t *testing.T) {
	f := newFixture(t)
	missAll(f)

	q := query(-1, 2)
	f.provider.On("FetchHistory", mock.Anything, "Kyiv", dayOffset(-1), dayOffset(0)).
		Return(&ports.ProviderResponse{Location: "Kyiv", Days: providerDays(-1, 0)}, nil)
	f.provider.On("FetchForecast", mock.Anything, "Kyiv", 14).
		Return(nil, &domain.UpstreamError{StatusCode: 500, URL: "/forecast.json"})

	bundle, err := f.service.GetWeather(context.Background(), q)
	require.Error(t, err)
	assert.Nil(t, bundle, "no partial bundle on branch failure")
	assert.Empty(t, f.queue.jobs)
}

func TestGetWeather_InvalidRange(t *testing.T) {
	f := newFixture(t)

	q := query(2, -2)
	bundle, err := f.service.GetWeather(context.Background(), q)

	require.Error(t, err)
	assert.Nil(t, bundle)

	var weatherErr *domain.WeatherError
	require.ErrorAs(t, err, &weatherErr)
	assert.Equal(t, "INVALID_RANGE", weatherErr.Code)
}

func TestSearchCities_CachesUpstreamResponse(t *testing.T) {
	f := newFixture(t)

	matches := []ports.CityMatch{{Name: "Kyiv", Country: "Ukraine"}}

	f.cache.On("Get", mock.Anything, "city-search:kyi").
		Return(nil, assert.AnError).Once()
	f.provider.On("Search", mock.Anything, "Kyi").Return(matches, nil).Once()
	f.cache.On("Set", mock.Anything, "city-search:kyi", mock.Anything, time.Minute).
		Return(nil).Once()

	got, err := f.service.SearchCities(context.Background(), "Kyi")
	require.NoError(t, err)
	assert.Equal(t, matches, got)

	f.cache.On("Get", mock.Anything, "city-search:kyi").
		Return([]byte(`[{"name":"Kyiv","region":"","country":"Ukraine","lat":0,"lon":0}]`), nil).Once()

	got, err = f.service.SearchCities(context.Background(), "Kyi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kyiv", got[0].Name)

	f.provider.AssertNumberOfCalls(t, "Search", 1)
}
