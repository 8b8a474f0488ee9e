// Package rest implements the HTTP handlers for the weather range endpoints.
// This package is the primary adapter: it parses and validates query
// parameters, drives the weather service, and shapes its results into
// client-facing JSON.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
	"github.com/okarpenko/weather-range-service/internal/middleware"
)

// WeatherHandler handles HTTP requests for weather range and city search
// operations. It manages request parsing, validation, and response
// formatting, and leaves all retrieval decisions to the service behind it.
type WeatherHandler struct {
	// service provides access to weather business operations
	service ports.WeatherService

	// validate checks query parameter shape before dates are parsed
	validate *validator.Validate

	// logger records request processing events and errors
	logger *zap.Logger
}

// NewWeatherHandler creates a new HTTP handler for weather operations.
//
// Parameters:
//   - service: WeatherService interface for business logic operations
//   - logger: Zap logger for request logging and error tracking
//
// Returns:
//   - *WeatherHandler: Configured handler instance
func NewWeatherHandler(service ports.WeatherService, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// weatherParams captures the raw query parameters of GET /weather before any
// date parsing happens.
type weatherParams struct {
	City      string `validate:"required,min=1,max=100"`
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
}

// DayResponse is one calendar day of weather in a WeatherResponse.
type DayResponse struct {
	Date      string  `json:"date"`
	AvgTempC  float64 `json:"avg_temp_c"`
	MinTempC  float64 `json:"min_temp_c"`
	MaxTempC  float64 `json:"max_temp_c"`
	Condition string  `json:"condition"`
}

// WeatherResponse represents the JSON structure returned by the weather
// endpoint. Historical and forecast days are kept apart so clients can
// render them differently; either list may be empty.
type WeatherResponse struct {
	Location   string        `json:"location"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	FromCache  bool          `json:"from_cache"`
	Historical []DayResponse `json:"historical"`
	Forecast   []DayResponse `json:"forecast"`
}

// CitiesResponse represents the JSON structure returned by the city search
// endpoint.
type CitiesResponse struct {
	Cities []ports.CityMatch `json:"cities"`
}

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetWeather handles GET requests for weather over a date range.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request containing 'city', 'start_date' and 'end_date' query
//     parameters, dates in YYYY-MM-DD format
//
// Response codes:
//   - 200: Success with WeatherResponse JSON
//   - 400: Invalid parameters (INVALID_PARAMETERS, INVALID_RANGE)
//   - 502: Upstream weather API failure (UPSTREAM_ERROR)
//   - 500: Internal server error
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	params := weatherParams{
		City:      r.URL.Query().Get("city"),
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	if err := h.validate.Struct(params); err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			"INVALID_PARAMETERS",
			"'city', 'start_date' and 'end_date' are required; dates must be YYYY-MM-DD",
		)

		return
	}

	// The datetime validator already guarantees these parse.
	start, _ := time.Parse(domain.DateLayout, params.StartDate)
	end, _ := time.Parse(domain.DateLayout, params.EndDate)

	query := domain.WeatherQuery{
		City:  params.City,
		Range: domain.NewDateRange(start, end),
	}

	if err := query.Range.Validate(); err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			"INVALID_RANGE",
			"'start_date' must not be after 'end_date'",
		)

		return
	}

	bundle, err := h.service.GetWeather(r.Context(), query)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := WeatherResponse{
		Location:   bundle.Location,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		FromCache:  bundle.FromCache,
		Historical: toDayResponses(bundle.Historical),
		Forecast:   toDayResponses(bundle.Forecast),
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// SearchCities handles GET requests for city-name autocomplete.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request containing a 'q' query parameter
//
// Response codes:
//   - 200: Success with CitiesResponse JSON
//   - 400: Missing query (MISSING_QUERY)
//   - 502: Upstream weather API failure (UPSTREAM_ERROR)
//   - 500: Internal server error
func (h *WeatherHandler) SearchCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	if q == "" {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			"MISSING_QUERY",
			"The 'q' query parameter is required",
		)

		return
	}

	cities, err := h.service.SearchCities(r.Context(), q)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if cities == nil {
		cities = []ports.CityMatch{}
	}

	h.respondWithJSON(w, http.StatusOK, CitiesResponse{Cities: cities})
}

func toDayResponses(records []domain.DayRecord) []DayResponse {
	out := make([]DayResponse, 0, len(records))

	for _, rec := range records {
		out = append(out, DayResponse{
			Date:      rec.Date.Format(domain.DateLayout),
			AvgTempC:  rec.AvgTempC,
			MinTempC:  rec.MinTempC,
			MaxTempC:  rec.MaxTempC,
			Condition: rec.Condition,
		})
	}

	return out
}

// respondWithJSON sends a JSON response with the specified status code.
//
// Parameters:
//   - w: HTTP response writer
//   - status: HTTP status code to return
//   - payload: Data to encode as JSON response body
func (h *WeatherHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
//
// Parameters:
//   - w: HTTP response writer
//   - status: HTTP status code for the error
//   - code: Machine-readable error code
//   - message: Human-readable error message
func (h *WeatherHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	response := ErrorResponse{
		Error:   code,
		Message: message,
	}

	h.respondWithJSON(w, status, response)
}

// handleServiceError maps domain errors to appropriate HTTP responses.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request for context extraction
//   - err: Error from service layer to map to HTTP response
//
// Error mappings:
//   - WeatherError.INVALID_RANGE -> 400 Bad Request
//   - domain.UpstreamError -> 502 Bad Gateway
//   - Other errors -> 500 Internal Server Error
func (h *WeatherHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		weatherErr  *domain.WeatherError
		upstreamErr *domain.UpstreamError
	)

	switch {
	case errors.As(err, &weatherErr) && weatherErr.Code == "INVALID_RANGE":
		h.respondWithError(w, http.StatusBadRequest, weatherErr.Code, weatherErr.Message)
	case errors.As(err, &upstreamErr):
		h.logger.Warn("upstream weather API failure",
			zap.Int("upstream_status", upstreamErr.StatusCode),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)

		h.respondWithError(
			w,
			http.StatusBadGateway,
			"UPSTREAM_ERROR",
			"The weather data provider is temporarily unavailable",
		)
	default:
		h.logger.Error("unexpected error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)

		h.respondWithError(
			w,
			http.StatusInternalServerError,
			"INTERNAL_ERROR",
			"An unexpected error occurred",
		)
	}
}
