// Package domain contains the core business entities for the weather range
// service: calendar date ranges, weather queries, per-day observations, and
// the errors shared across layers. It is independent of transport, storage,
// and the upstream API.
package domain

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire format for calendar days, both in the upstream API
// and in our own JSON responses.
const DateLayout = "2006-01-02"

// WeatherQuery is the immutable input to every retrieval operation.
type WeatherQuery struct {
	// City is the location name as entered by the user
	City string

	// Range is the requested inclusive span of calendar days
	Range DateRange
}

// DayRecord is one per-day entry as returned by the upstream API, already
// parsed into domain terms. Ordered sequences of DayRecord make up both the
// historical and the forecast halves of a WeatherBundle.
type DayRecord struct {
	Date      time.Time
	AvgTempC  float64
	MinTempC  float64
	MaxTempC  float64
	Condition string
}

// DailyObservation is the persisted unit: one temperature reading for one
// city and day, uniquely identified by (City, Date). Temperature carries a
// single fractional digit, matching the decimal(3,1) column it lands in.
type DailyObservation struct {
	City        string
	Date        time.Time
	Temperature float64
}

// NewDailyObservation builds a persistable observation from a fetched day
// record, rounding the temperature to the stored precision.
func NewDailyObservation(city string, rec DayRecord) DailyObservation {
	return DailyObservation{
		City:        city,
		Date:        Day(rec.Date),
		Temperature: math.Round(rec.AvgTempC*10) / 10,
	}
}

// WeatherBundle is the merged result of one weather query. Depending on how
// the requested range relates to today, either half may be empty; in the
// straddling case both are populated.
type WeatherBundle struct {
	// Location is the resolved place name reported by the upstream API,
	// or the queried city name when served from the cache
	Location string

	// Historical holds past days, oldest first, covering [start, today]
	Historical []DayRecord

	// Forecast holds future days, earliest first, covering (today, end]
	Forecast []DayRecord

	// FromCache is true when every requested day was already persisted
	// and no upstream call was made
	FromCache bool
}

// Records returns both halves of the bundle as one chronological sequence.
func (b *WeatherBundle) Records() []DayRecord {
	out := make([]DayRecord, 0, len(b.Historical)+len(b.Forecast))
	out = append(out, b.Historical...)
	out = append(out, b.Forecast...)

	return out
}

// UpstreamError reports a non-success HTTP status from the weather API.
// The retrieval layer does not retry or degrade on it: stale or partial
// weather data is considered worse than an explicit failure.
type UpstreamError struct {
	// StatusCode is the HTTP status returned by the upstream API
	StatusCode int

	// URL is the request URL that produced the failure, without credentials
	URL string
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather API returned status %d for %s", e.StatusCode, e.URL)
}

// WeatherError represents coded domain errors surfaced to the HTTP layer.
type WeatherError struct {
	// Code identifies the type of error for programmatic handling
	Code string

	// Message provides a human-readable error description
	Message string

	// Cause wraps an underlying error if applicable
	Cause error
}

// Error implements the error interface for WeatherError.
func (e *WeatherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *WeatherError) Unwrap() error {
	return e.Cause
}
