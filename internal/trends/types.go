package trends

import (
	"context"
	"sort"
	"time"
)

// WeeklyObservation is one week of search interest for a ticker. WeekStart is
// the first day of the week as emitted by the source; weeks are contiguous
// and non-overlapping. Value is the combined interest in [0,100]. Partial
// marks weeks Google reported as incomplete; it is metadata only and never
// excludes a week from detection.
type WeeklyObservation struct {
	Ticker    string
	WeekStart time.Time
	Value     float64
	Partial   bool
}

// WeekEnd returns the last day of the observation's week.
func (w WeeklyObservation) WeekEnd() time.Time {
	return w.WeekStart.AddDate(0, 0, 6)
}

// WeeklySource supplies the weekly interest series for one ticker-year.
// Implementations: live Google Trends client, CSV-backed source, mock.
type WeeklySource interface {
	FetchWeekly(ctx context.Context, ticker string, year int) ([]WeeklyObservation, error)

	// Basis describes which search terms produced the series, carried into
	// the events table (e.g. "ticker" or "ticker|max(ticker,'ticker stock')").
	Basis() string
}

// CombineMax merges per-term weekly series into one by taking the pointwise
// maximum across terms for each week. Series must be aligned by week start;
// weeks present in only some series keep the maximum of the values present.
func CombineMax(series ...[]WeeklyObservation) []WeeklyObservation {
	if len(series) == 0 {
		return nil
	}
	if len(series) == 1 {
		return series[0]
	}

	byWeek := make(map[time.Time]WeeklyObservation)
	order := make([]time.Time, 0)
	for _, s := range series {
		for _, obs := range s {
			existing, ok := byWeek[obs.WeekStart]
			if !ok {
				byWeek[obs.WeekStart] = obs
				order = append(order, obs.WeekStart)
				continue
			}
			if obs.Value > existing.Value {
				existing.Value = obs.Value
			}
			// A week partial in any term stays flagged in the combined series.
			existing.Partial = existing.Partial || obs.Partial
			byWeek[obs.WeekStart] = existing
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	combined := make([]WeeklyObservation, 0, len(order))
	for _, ws := range order {
		combined = append(combined, byWeek[ws])
	}
	return combined
}
