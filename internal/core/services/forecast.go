package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// fetchForecast retrieves the future half of a query. The upstream API
// always answers with its fixed window starting today, so the response is
// filtered down to the requested range, keeping only days strictly after
// today (today itself belongs to the historical path). Days beyond the
// fixed window are simply absent from the result; that truncation is a
// documented upstream limitation, not an error.
func (s *retrievalService) fetchForecast(ctx context.Context, query domain.WeatherQuery, today time.Time) (*ports.ProviderResponse, error) {
	resp, err := s.provider.FetchForecast(ctx, query.City, s.cfg.ForecastDays)

	if err != nil {
		return nil, err
	}

	kept := make([]domain.DayRecord, 0, len(resp.Days))

	for _, rec := range resp.Days {
		d := domain.Day(rec.Date)

		if query.Range.Contains(d) && d.After(today) {
			kept = append(kept, rec)
		}
	}

	s.logger.Debug("filtered forecast window",
		zap.String("city", query.City),
		zap.Int("window_days", len(resp.Days)),
		zap.Int("kept_days", len(kept)))

	resp.Days = kept

	return resp, nil
}
