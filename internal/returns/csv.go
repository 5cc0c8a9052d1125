package returns

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Excess files name two of their columns after the instrument, so like the
// weekly trends files they go through encoding/csv directly.

const (
	dateLayout = "2006-01-02"
	pctDP      = 3
)

// ExcessPath returns the per-ticker-year excess file path under dir.
func ExcessPath(dir, ticker string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d_excess.csv", ticker, year))
}

// FormatPct renders a decimal return as a percent string with 3 decimals,
// e.g. -0.0417 -> "-4.170%".
func FormatPct(v float64) string {
	return fmt.Sprintf("%.*f%%", pctDP, v*100)
}

// WriteExcessCSV persists one ticker-year of excess returns with both the
// decimal columns (used by downstream joins) and the percent display
// columns. Header-only when obs is empty.
func WriteExcessCSV(dir, ticker, benchmark string, year int, obs []Observation) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(ExcessPath(dir, ticker, year))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"Date",
		fmt.Sprintf("%s Daily Return", ticker),
		fmt.Sprintf("%s Daily Return", benchmark),
		"Excess Daily Return",
		fmt.Sprintf("%s Daily Return (%%)", ticker),
		fmt.Sprintf("%s Daily Return (%%)", benchmark),
		"Excess Daily Return (%)",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, o := range obs {
		row := []string{
			o.Date.Format(dateLayout),
			strconv.FormatFloat(o.TickerReturn, 'f', rawPrecision, 64),
			strconv.FormatFloat(o.BenchmarkReturn, 'f', rawPrecision, 64),
			strconv.FormatFloat(o.Excess, 'f', rawPrecision, 64),
			FormatPct(o.TickerReturn),
			FormatPct(o.BenchmarkReturn),
			FormatPct(o.Excess),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadExcessCSV loads the Date and Excess Daily Return columns of one
// ticker-year file. Rows with unparseable dates or values are dropped
// silently.
func ReadExcessCSV(dir, ticker string, year int) ([]Observation, error) {
	f, err := os.Open(ExcessPath(dir, ticker, year))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	dateCol, excessCol := -1, -1
	for i, name := range records[0] {
		switch {
		case strings.EqualFold(name, "Date"):
			dateCol = i
		case strings.EqualFold(name, "Excess Daily Return"):
			excessCol = i
		}
	}
	if dateCol == -1 || excessCol == -1 {
		return nil, fmt.Errorf("excess file for %s %d has no Date/Excess Daily Return columns", ticker, year)
	}

	var obs []Observation
	for _, rec := range records[1:] {
		if dateCol >= len(rec) || excessCol >= len(rec) {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(rec[dateCol]))
		if err != nil {
			continue
		}
		excess, err := strconv.ParseFloat(strings.TrimSpace(rec[excessCol]), 64)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{
			Ticker: ticker,
			Date:   date,
			Excess: Round(excess, rawPrecision),
		})
	}
	return obs, nil
}

// ReadExcessSpan loads every yearly excess file overlapping [start, end] and
// returns the observations inside the span, date-ordered. Missing year files
// are skipped; the window simply has fewer trading days.
func ReadExcessSpan(dir, ticker string, start, end time.Time) ([]Observation, error) {
	var all []Observation
	for year := start.Year(); year <= end.Year(); year++ {
		obs, err := ReadExcessCSV(dir, ticker, year)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		all = append(all, obs...)
	}

	inSpan := Slice(all, start, end)
	sort.Slice(inSpan, func(i, j int) bool { return inSpan[i].Date.Before(inSpan[j].Date) })
	return inSpan, nil
}
