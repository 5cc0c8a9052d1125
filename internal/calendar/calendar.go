package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoTradingDays is returned when the source has no dates for a year.
// Anchor resolution has no fallback, so this is fatal for the whole year.
var ErrNoTradingDays = errors.New("no trading days for year")

// TradingDaySource supplies the observed trading dates of the benchmark for
// one calendar year.
type TradingDaySource interface {
	TradingDates(ctx context.Context, year int) ([]time.Time, error)
}

// Index is the set of known trading days for one year plus the maximum known
// trading date. Immutable once built; safe to share read-only across
// instrument workers.
type Index struct {
	year    int
	days    map[time.Time]struct{}
	maxDate time.Time
}

// Build fetches the year's trading dates and indexes them. Fails with
// ErrNoTradingDays when the source returns nothing; a partial calendar is
// never synthesized.
func Build(ctx context.Context, source TradingDaySource, year int) (*Index, error) {
	dates, err := source.TradingDates(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("fetching trading dates for %d: %w", year, err)
	}
	return New(year, dates)
}

// New builds an index from an explicit date list.
func New(year int, dates []time.Time) (*Index, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoTradingDays, year)
	}

	idx := &Index{
		year: year,
		days: make(map[time.Time]struct{}, len(dates)),
	}
	for _, d := range dates {
		day := Day(d)
		idx.days[day] = struct{}{}
		if day.After(idx.maxDate) {
			idx.maxDate = day
		}
	}
	return idx, nil
}

// Year returns the calendar year the index covers.
func (idx *Index) Year() int { return idx.year }

// Contains reports whether date is a known trading day. O(1).
func (idx *Index) Contains(date time.Time) bool {
	_, ok := idx.days[Day(date)]
	return ok
}

// MaxDate is the last trading day the source knew about. Anchors walked past
// it are emitted as-is with a warning rather than dropped.
func (idx *Index) MaxDate() time.Time { return idx.maxDate }

// Len returns the number of indexed trading days.
func (idx *Index) Len() int { return len(idx.days) }

// Day normalizes a timestamp to a UTC date, the key granularity of the index.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
