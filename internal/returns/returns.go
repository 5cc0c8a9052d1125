package returns

import (
	"math"
	"sort"
	"time"
)

// rawPrecision is the decimal rounding applied to stored per-day returns.
// Rounding happens before any max/argmax selection so ties are resolved on
// the values a reader of the CSV would see.
const rawPrecision = 4

// PricePoint is one daily adjusted close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// Observation is one trading day of instrument, benchmark, and excess
// return, all in decimal units (0.0123 = 1.23%).
type Observation struct {
	Ticker          string
	Date            time.Time
	TickerReturn    float64
	BenchmarkReturn float64
	Excess          float64
}

// DailyReturns converts a price series into day-over-day returns. The first
// day has no prior close and produces no return.
func DailyReturns(prices []PricePoint) map[time.Time]float64 {
	sorted := make([]PricePoint, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make(map[time.Time]float64, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close
		if prev == 0 {
			continue
		}
		out[sorted[i].Date] = sorted[i].Close/prev - 1
	}
	return out
}

// BuildExcess joins instrument and benchmark prices into the excess-return
// series over the intersection of their trading dates, ordered by date, with
// all returns rounded to the stored precision.
func BuildExcess(ticker string, instrument, benchmark []PricePoint) []Observation {
	instRet := DailyReturns(instrument)
	benchRet := DailyReturns(benchmark)

	dates := make([]time.Time, 0, len(instRet))
	for d := range instRet {
		if _, ok := benchRet[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	obs := make([]Observation, 0, len(dates))
	for _, d := range dates {
		ri := Round(instRet[d], rawPrecision)
		rb := Round(benchRet[d], rawPrecision)
		obs = append(obs, Observation{
			Ticker:          ticker,
			Date:            d,
			TickerReturn:    ri,
			BenchmarkReturn: rb,
			Excess:          Round(instRet[d]-benchRet[d], rawPrecision),
		})
	}
	return obs
}

// Slice returns the observations dated within [start, end] inclusive,
// preserving date order.
func Slice(obs []Observation, start, end time.Time) []Observation {
	var out []Observation
	for _, o := range obs {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
