package trends

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Weekly files carry the ticker symbol as the value-column header
// (Week,<TICKER>,isPartial), so they are read and written with encoding/csv
// rather than a struct-tag mapper.

const dateLayout = "2006-01-02"

// WeeklyPath returns the per-ticker-year weekly file path under dir.
func WeeklyPath(dir, ticker string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.csv", ticker, year))
}

// WriteWeeklyCSV persists a raw weekly pull so analysts can audit the
// underlying data. A header-only file is written when obs is empty.
func WriteWeeklyCSV(dir, ticker string, year int, obs []WeeklyObservation) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(WeeklyPath(dir, ticker, year))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Week", ticker, "isPartial"}); err != nil {
		return err
	}
	for _, o := range obs {
		row := []string{
			o.WeekStart.Format(dateLayout),
			strconv.Itoa(int(o.Value + 0.5)),
			strconv.FormatBool(o.Partial),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadWeeklyCSV loads a weekly file back into observations. Rows with an
// unparseable date or value column are dropped silently; weeks outside the
// requested year are excluded.
func ReadWeeklyCSV(dir, ticker string, year int) ([]WeeklyObservation, error) {
	f, err := os.Open(WeeklyPath(dir, ticker, year))
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

	header := records[0]
	weekCol, valCol, partCol := -1, -1, -1
	for i, name := range header {
		switch {
		case strings.EqualFold(name, "Week"):
			weekCol = i
		case strings.EqualFold(name, "isPartial"):
			partCol = i
		case valCol == -1:
			// The value column carries the ticker symbol (sometimes with a
			// trailing qualifier like "TSLA: (United States)").
			valCol = i
		}
	}
	if weekCol == -1 || valCol == -1 {
		return nil, fmt.Errorf("weekly file for %s %d has no Week/value columns", ticker, year)
	}

	var obs []WeeklyObservation
	for _, rec := range records[1:] {
		if weekCol >= len(rec) || valCol >= len(rec) {
			continue
		}
		weekStart, err := time.Parse(dateLayout, strings.TrimSpace(rec[weekCol]))
		if err != nil {
			continue
		}
		if weekStart.Year() != year {
			continue
		}
		raw := strings.TrimSpace(rec[valCol])
		if raw == "<1" {
			raw = "0"
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		partial := false
		if partCol != -1 && partCol < len(rec) {
			partial = strings.EqualFold(strings.TrimSpace(rec[partCol]), "true")
		}
		obs = append(obs, WeeklyObservation{
			Ticker:    ticker,
			WeekStart: weekStart,
			Value:     value,
			Partial:   partial,
		})
	}
	return obs, nil
}

// CSVSource serves weekly series from previously gathered files, so the
// batch pipeline can run without touching the network.
type CSVSource struct {
	Dir       string
	BasisDesc string
}

// NewCSVSource creates a file-backed weekly source rooted at dir.
func NewCSVSource(dir string, addStockTerm bool) *CSVSource {
	basis := "ticker"
	if addStockTerm {
		basis = "ticker|max(ticker,'ticker stock')"
	}
	return &CSVSource{Dir: dir, BasisDesc: basis}
}

func (s *CSVSource) Basis() string { return s.BasisDesc }

func (s *CSVSource) FetchWeekly(_ context.Context, ticker string, year int) ([]WeeklyObservation, error) {
	obs, err := ReadWeeklyCSV(s.Dir, ticker, year)
	if err != nil {
		return nil, fmt.Errorf("no weekly data for %s %d: %w", ticker, year, err)
	}
	return obs, nil
}

// MockSource returns a fixed series per ticker, for tests and dry runs.
type MockSource struct {
	Series map[string][]WeeklyObservation
}

func (m *MockSource) Basis() string { return "ticker" }

func (m *MockSource) FetchWeekly(_ context.Context, ticker string, year int) ([]WeeklyObservation, error) {
	obs, ok := m.Series[ticker]
	if !ok {
		return nil, fmt.Errorf("no mock weekly series for %s", ticker)
	}
	var inYear []WeeklyObservation
	for _, o := range obs {
		if o.WeekStart.Year() == year {
			inYear = append(inYear, o)
		}
	}
	return inYear, nil
}
