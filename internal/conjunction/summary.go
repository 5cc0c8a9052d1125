package conjunction

import (
	"sort"

	"gst-research/internal/returns"
)

// Summary holds the two per-instrument averages. Nil means no contributing
// records existed; it is reported as empty, not zero.
type Summary struct {
	Ticker string
	// AvgPosInWindowPos is the mean 1-based position of the max-positive day
	// across records that have one.
	AvgPosInWindowPos *float64
	// AvgPosStreakDays is the mean positive-streak length across records
	// with a strictly positive streak. Zero-length streaks (no positive day)
	// are excluded, not averaged in as zeros.
	AvgPosStreakDays *float64
}

// Summarize computes one ticker's averages from its per-event records,
// rounded to 2 decimals.
func Summarize(ticker string, recs []Record) Summary {
	var posSum, streakSum float64
	var posN, streakN int
	for _, r := range recs {
		if r.MaxPos == nil {
			continue
		}
		posSum += float64(r.MaxPos.Position)
		posN++
		if r.PosStreakDays > 0 {
			streakSum += float64(r.PosStreakDays)
			streakN++
		}
	}

	s := Summary{Ticker: ticker}
	if posN > 0 {
		v := returns.Round(posSum/float64(posN), 2)
		s.AvgPosInWindowPos = &v
	}
	if streakN > 0 {
		v := returns.Round(streakSum/float64(streakN), 2)
		s.AvgPosStreakDays = &v
	}
	return s
}

// SummarizeAll builds the cross-instrument table by re-deriving both means
// directly from the underlying per-event records (never by averaging the
// per-instrument averages). Rows are sorted by ticker.
func SummarizeAll(perTicker map[string][]Record) []Summary {
	tickers := make([]string, 0, len(perTicker))
	for t := range perTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]Summary, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, Summarize(t, perTicker[t]))
	}
	return out
}
