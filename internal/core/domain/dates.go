package domain

import (
	"fmt"
	"time"
)

// Day normalizes a timestamp to a calendar day: midnight UTC.
// All date arithmetic in this package assumes day-normalized values,
// which keeps day counting free of DST surprises.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange represents an inclusive span of calendar days.
// Start and End are day-normalized (see Day).
type DateRange struct {
	// Start is the first day of the range
	Start time.Time

	// End is the last day of the range, inclusive
	End time.Time
}

// NewDateRange builds a day-normalized range from two timestamps.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Validate checks the start-before-end invariant. The web layer already
// enforces this on input, so a failure here means a programming error
// upstream rather than bad user data.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("range start %s is after end %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}

	return nil
}

// Days returns the number of calendar days covered, inclusive of both ends.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether the given day falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// ClampEnd returns a copy of the range with End pulled back to limit when it
// extends past it. Used to cut historical queries off at today, since the
// upstream history endpoint can transiently report tomorrow in the evening.
func (r DateRange) ClampEnd(limit time.Time) DateRange {
	limit = Day(limit)

	if r.End.After(limit) {
		r.End = limit
	}

	return r
}

// Split partitions the range into ordered sub-ranges for the upstream
// history endpoint, which only accepts a bounded number of days per call.
// Each sub-range spans [cursor, cursor+maxSpan] capped at End, and the next
// cursor starts the day after. The sub-ranges cover the original range
// exactly once, in ascending order, with no gaps or overlaps.
//
// Parameters:
//   - maxSpan: per-call day step accepted by the upstream API
//
// Returns:
//   - []DateRange: ordered partition of the receiver
func (r DateRange) Split(maxSpan int) []DateRange {
	if r.End.Sub(r.Start) < time.Duration(maxSpan)*24*time.Hour {
		return []DateRange{r}
	}

	var parts []DateRange
	cursor := r.Start

	for !cursor.After(r.End) {
		stop := cursor.AddDate(0, 0, maxSpan)

		if stop.After(r.End) {
			stop = r.End
		}

		parts = append(parts, DateRange{Start: cursor, End: stop})
		cursor = stop.AddDate(0, 0, 1)
	}

	return parts
}
