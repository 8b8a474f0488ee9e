package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// fetchHistorical retrieves the past half of a query. The end date is
// clamped to today first: the history endpoint cannot answer for future
// days, and in the evening it transiently lists tomorrow. The clamped range
// is then split to respect the per-call day limit, the sub-ranges fetched
// sequentially, and the per-day records concatenated in order. Location
// metadata comes from the first sub-call.
func (s *retrievalService) fetchHistorical(ctx context.Context, query domain.WeatherQuery, today time.Time) (*ports.ProviderResponse, error) {
	r := query.Range.ClampEnd(today)
	parts := r.Split(s.cfg.MaxHistoryDays)

	s.logger.Debug("fetching historical range",
		zap.String("city", query.City),
		zap.Time("start", r.Start),
		zap.Time("end", r.End),
		zap.Int("sub_ranges", len(parts)))

	var combined *ports.ProviderResponse

	// Sequential on purpose: concatenation order is chronological order.
	for _, part := range parts {
		resp, err := s.provider.FetchHistory(ctx, query.City, part.Start, part.End)

		if err != nil {
			return nil, err
		}

		if combined == nil {
			combined = resp
			continue
		}

		combined.Days = append(combined.Days, resp.Days...)
	}

	return combined, nil
}
