package conjunction

import (
	"math"
	"time"

	"gst-research/internal/returns"
)

// Analysis window around the anchor: one week back, two weeks forward,
// covering the 3-week span straddling the anchor's week.
const (
	windowBackDays    = 7
	windowForwardDays = 13
)

// DayStat identifies one selected trading day inside a window: its date, the
// excess return that day (decimal, sign preserved), and its 1-based ordinal
// among the window's observed trading days in date order.
type DayStat struct {
	Date     time.Time
	Value    float64
	Position int
}

// Record is one surviving spike event joined with the excess-return series
// in its analysis window. MaxAbs is nil only when the window holds no
// trading days; MaxPos is nil when no day had a strictly positive excess
// return. Absence means "no data", never zero.
type Record struct {
	Ticker          string
	Year            int
	AnchorWeekStart time.Time
	WindowStart     time.Time
	WindowEnd       time.Time

	MaxAbs *DayStat
	MaxPos *DayStat
	// PosStreakDays counts consecutive non-negative days starting at the
	// max-positive day. Meaningful only when MaxPos is set.
	PosStreakDays  int
	NumTradingDays int
}

// Window returns the analysis span [anchor-7d, anchor+13d] for an anchor.
func Window(anchor time.Time) (time.Time, time.Time) {
	return anchor.AddDate(0, 0, -windowBackDays), anchor.AddDate(0, 0, windowForwardDays)
}

// Analyze joins one event's window with its excess-return observations,
// which must be date-ordered and already restricted to the window. Ties on
// equal values resolve to the first occurrence in date order.
func Analyze(ticker string, year int, anchor time.Time, obs []returns.Observation) Record {
	start, end := Window(anchor)
	rec := Record{
		Ticker:          ticker,
		Year:            year,
		AnchorWeekStart: anchor,
		WindowStart:     start,
		WindowEnd:       end,
		NumTradingDays:  len(obs),
	}
	if len(obs) == 0 {
		return rec
	}

	// Largest absolute move, sign kept. Strict > keeps the first occurrence
	// on ties.
	absIdx := 0
	for i, o := range obs {
		if math.Abs(o.Excess) > math.Abs(obs[absIdx].Excess) {
			absIdx = i
		}
	}
	rec.MaxAbs = &DayStat{
		Date:     obs[absIdx].Date,
		Value:    obs[absIdx].Excess,
		Position: absIdx + 1,
	}

	// Largest strictly positive move, if any.
	posIdx := -1
	for i, o := range obs {
		if o.Excess <= 0 {
			continue
		}
		if posIdx == -1 || o.Excess > obs[posIdx].Excess {
			posIdx = i
		}
	}
	if posIdx == -1 {
		return rec
	}
	rec.MaxPos = &DayStat{
		Date:     obs[posIdx].Date,
		Value:    obs[posIdx].Excess,
		Position: posIdx + 1,
	}

	// Consecutive non-negative days starting at the max-positive day.
	streak := 0
	for i := posIdx; i < len(obs); i++ {
		if obs[i].Excess < 0 {
			break
		}
		streak++
	}
	rec.PosStreakDays = streak

	return rec
}
