// Package weatherapi implements a client for the WeatherAPI.com HTTP API.
// This package serves as a secondary adapter, exposing the three upstream
// operations the service needs (city search, historical range, forecast
// window) and parsing their JSON bodies into domain terms.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// Client implements the WeatherProvider interface for WeatherAPI.com.
// Any non-success HTTP status fails the call with *domain.UpstreamError;
// retries, if wanted, belong to the caller or the surrounding breaker.
type Client struct {
	// baseURL is the API base endpoint, e.g. https://api.weatherapi.com/v1
	baseURL string

	// apiKey authenticates every request via the key query parameter
	apiKey string

	// language is passed as the lang parameter on every request
	language string

	// httpClient handles HTTP communication with timeout configuration
	httpClient *http.Client

	// logger records API interactions and errors
	logger *zap.Logger
}

// NewClient creates a WeatherAPI.com client.
//
// Parameters:
//   - baseURL: API base URL (typically https://api.weatherapi.com/v1)
//   - apiKey: account API key
//   - language: two-letter response language code
//   - httpClient: HTTP client with timeout configuration
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured WeatherAPI client
func NewClient(baseURL, apiKey, language string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		language:   language,
		httpClient: httpClient,
		logger:     logger,
	}
}

// apiResponse mirrors the subset of the WeatherAPI payload the service
// reads. Both the history and forecast endpoints share this shape.
type apiResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Forecast struct {
		Forecastday []forecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type forecastDay struct {
	Date string `json:"date"`
	Day  struct {
		AvgTempC  float64 `json:"avgtemp_c"`
		MinTempC  float64 `json:"mintemp_c"`
		MaxTempC  float64 `json:"maxtemp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"day"`
}

// Search returns candidate city matches for a free-text query.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - city: free-text city name or prefix
//
// Returns:
//   - []ports.CityMatch: candidate matches, possibly empty
//   - error: *domain.UpstreamError on non-2xx, or transport/decode error
func (c *Client) Search(ctx context.Context, city string) ([]ports.CityMatch, error) {
	body, err := c.get(ctx, "/search.json", url.Values{"q": {city}})

	if err != nil {
		return nil, err
	}

	defer closeBody(body, c.logger)

	var matches []ports.CityMatch

	if err := json.NewDecoder(body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return matches, nil
}

// FetchHistory returns one call's worth of historical per-day records for
// [start, end]. The span must respect the API's per-call day limit.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - city: location query
//   - start: first day of the sub-range (dt parameter)
//   - end: last day of the sub-range (end_dt parameter)
//
// Returns:
//   - *ports.ProviderResponse: location name plus chronological day records
//   - error: *domain.UpstreamError on non-2xx, or transport/decode error
func (c *Client) FetchHistory(ctx context.Context, city string, start, end time.Time) (*ports.ProviderResponse, error) {
	params := url.Values{
		"q":      {city},
		"dt":     {start.Format(domain.DateLayout)},
		"end_dt": {end.Format(domain.DateLayout)},
	}

	return c.fetchDays(ctx, "/history.json", params)
}

// FetchForecast returns the API's fixed forecast window starting today.
// The window length is a server-side configuration value; the API ignores
// the requested range entirely and callers filter the result themselves.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - city: location query
//   - days: fixed window length (days parameter)
//
// Returns:
//   - *ports.ProviderResponse: location name plus chronological day records
//   - error: *domain.UpstreamError on non-2xx, or transport/decode error
func (c *Client) FetchForecast(ctx context.Context, city string, days int) (*ports.ProviderResponse, error) {
	params := url.Values{
		"q":    {city},
		"days": {fmt.Sprintf("%d", days)},
	}

	return c.fetchDays(ctx, "/forecast.json", params)
}

// fetchDays performs one history or forecast call and converts the shared
// payload shape into a ProviderResponse. A missing forecast.forecastday
// section is a defect in the upstream contract and surfaces as an error
// rather than an empty result.
func (c *Client) fetchDays(ctx context.Context, method string, params url.Values) (*ports.ProviderResponse, error) {
	body, err := c.get(ctx, method, params)

	if err != nil {
		return nil, err
	}

	defer closeBody(body, c.logger)

	var payload apiResponse

	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if payload.Forecast.Forecastday == nil {
		return nil, fmt.Errorf("%s response has no forecast.forecastday section", method)
	}

	resp := &ports.ProviderResponse{
		Location: payload.Location.Name,
		Days:     make([]domain.DayRecord, 0, len(payload.Forecast.Forecastday)),
	}

	for _, fd := range payload.Forecast.Forecastday {
		date, err := time.Parse(domain.DateLayout, fd.Date)

		if err != nil {
			return nil, fmt.Errorf("unparseable day date %q in %s response: %w", fd.Date, method, err)
		}

		resp.Days = append(resp.Days, domain.DayRecord{
			Date:      date,
			AvgTempC:  fd.Day.AvgTempC,
			MinTempC:  fd.Day.MinTempC,
			MaxTempC:  fd.Day.MaxTempC,
			Condition: fd.Day.Condition.Text,
		})
	}

	return resp, nil
}

// get issues one GET against the API and returns the response body on a
// 2xx status. Other statuses produce *domain.UpstreamError carrying the
// status and the request URL with the key parameter removed.
func (c *Client) get(ctx context.Context, method string, params url.Values) (io.ReadCloser, error) {
	params.Set("key", c.apiKey)
	params.Set("lang", c.language)

	fullURL := c.baseURL + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)

	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		closeBody(resp.Body, c.logger)

		upstreamErr := &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			URL:        redactedURL(c.baseURL+method, params),
		}

		c.logger.Warn("upstream weather API call failed",
			zap.Int("status", upstreamErr.StatusCode),
			zap.String("url", upstreamErr.URL))

		return nil, upstreamErr
	}

	return resp.Body, nil
}

// redactedURL rebuilds the request URL without the API key, for errors and
// logs.
func redactedURL(base string, params url.Values) string {
	clean := url.Values{}

	for k, vs := range params {
		if k == "key" {
			continue
		}

		clean[k] = vs
	}

	return base + "?" + clean.Encode()
}

func closeBody(body io.ReadCloser, logger *zap.Logger) {
	if err := body.Close(); err != nil {
		logger.Error("failed to close response body", zap.Error(err))
	}
}
