package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gst-research/internal/logger"
	"gst-research/internal/returns"
	"gst-research/internal/store"
	"gst-research/internal/trends"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &store.Config{
		Tickers:   []string{"AAPL"},
		Years:     []int{2024},
		Benchmark: "SPY",
		Workers:   2,
	}
	cfg.Detection.LiveThreshold = 80
	cfg.Detection.BatchThreshold = 85
	cfg.Overlap.EventsPolicy = store.OverlapPolicyWindow
	cfg.Overlap.BatchPolicy = store.OverlapPolicyFixedGap
	cfg.Overlap.MinGapDays = 21
	cfg.Paths.WeeklyDir = filepath.Join(dir, "weekly")
	cfg.Paths.NoOverlapDir = filepath.Join(dir, "no_overlap")
	cfg.Paths.ExcessDir = filepath.Join(dir, "excess")
	cfg.Paths.ConjunctionDir = filepath.Join(dir, "conjunction")
	cfg.Paths.EventsFile = filepath.Join(dir, "events.csv")
	return cfg
}

type fakeDaySource struct {
	dates []time.Time
}

func (f fakeDaySource) TradingDates(ctx context.Context, year int) ([]time.Time, error) {
	return f.dates, nil
}

// weekdays generates every weekday of a year, a stand-in trading calendar.
func weekdays(year int) []time.Time {
	var out []time.Time
	for d := date(year, 1, 1); d.Year() == year; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

type fakePriceSource struct {
	prices map[string][]returns.PricePoint
}

func (f fakePriceSource) DailyCloses(ctx context.Context, ticker string, year int) ([]returns.PricePoint, error) {
	p, ok := f.prices[ticker]
	if !ok {
		return nil, fmt.Errorf("no prices for %s", ticker)
	}
	return p, nil
}

func TestRunEvents(t *testing.T) {
	cfg := testConfig(t)

	weekly := &trends.MockSource{Series: map[string][]trends.WeeklyObservation{
		"AAPL": {
			{Ticker: "AAPL", WeekStart: date(2024, 1, 7), Value: 70},
			{Ticker: "AAPL", WeekStart: date(2024, 2, 4), Value: 91},
		},
	}}

	p := New(cfg, weekly, fakeDaySource{dates: weekdays(2024)}, nil)

	if err := p.RunEvents(context.Background(), 2024); err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	data, err := os.ReadFile(cfg.Paths.EventsFile)
	if err != nil {
		t.Fatalf("Expected events file to be written, got %v", err)
	}
	content := string(data)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 event, got %d lines", len(lines))
	}
	// Week of Sunday Feb 4: the Wednesday is Feb 7, a trading day.
	if !strings.Contains(content, "2024-02-07") {
		t.Errorf("Expected anchor 2024-02-07 in events file, got %q", content)
	}

	// The raw weekly pull is persisted alongside.
	if _, err := os.Stat(trends.WeeklyPath(cfg.Paths.WeeklyDir, "AAPL", 2024)); err != nil {
		t.Errorf("Expected raw weekly file to be saved, got %v", err)
	}
}

func TestRunEventsTickerFailureAbsorbed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tickers = []string{"AAPL", "GONE"}

	weekly := &trends.MockSource{Series: map[string][]trends.WeeklyObservation{
		"AAPL": {{Ticker: "AAPL", WeekStart: date(2024, 2, 4), Value: 91}},
	}}

	p := New(cfg, weekly, fakeDaySource{dates: weekdays(2024)}, nil)

	if err := p.RunEvents(context.Background(), 2024); err != nil {
		t.Fatalf("Expected a failing ticker to be absorbed, got %v", err)
	}

	data, err := os.ReadFile(cfg.Paths.EventsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "AAPL") {
		t.Error("Expected the healthy ticker's event to survive")
	}
}

func TestRunEventsNoCalendarFails(t *testing.T) {
	cfg := testConfig(t)

	weekly := &trends.MockSource{Series: map[string][]trends.WeeklyObservation{}}
	p := New(cfg, weekly, fakeDaySource{dates: nil}, nil)

	if err := p.RunEvents(context.Background(), 2024); err == nil {
		t.Fatal("Expected an empty trading calendar to abort the run")
	}
}

func TestRunWeekly(t *testing.T) {
	cfg := testConfig(t)

	weekly := &trends.MockSource{Series: map[string][]trends.WeeklyObservation{
		"AAPL": {{Ticker: "AAPL", WeekStart: date(2024, 1, 7), Value: 42}},
	}}

	p := New(cfg, weekly, nil, nil)

	if err := p.RunWeekly(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	obs, err := trends.ReadWeeklyCSV(cfg.Paths.WeeklyDir, "AAPL", 2024)
	if err != nil {
		t.Fatalf("Expected weekly file readable, got %v", err)
	}
	if len(obs) != 1 || obs[0].Value != 42 {
		t.Errorf("Expected the pulled series persisted, got %+v", obs)
	}
}

func TestRunExcess(t *testing.T) {
	cfg := testConfig(t)

	prices := fakePriceSource{prices: map[string][]returns.PricePoint{
		"AAPL": {
			{Date: date(2024, 1, 2), Close: 100},
			{Date: date(2024, 1, 3), Close: 103},
		},
		"SPY": {
			{Date: date(2024, 1, 2), Close: 400},
			{Date: date(2024, 1, 3), Close: 404},
		},
	}}

	p := New(cfg, nil, nil, prices)

	if err := p.RunExcess(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	obs, err := returns.ReadExcessCSV(cfg.Paths.ExcessDir, "AAPL", 2024)
	if err != nil {
		t.Fatalf("Expected excess file readable, got %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(obs))
	}
	if obs[0].Excess != 0.02 {
		t.Errorf("Expected excess 0.02, got %v", obs[0].Excess)
	}
}

func TestRunConjunctionAndSummary(t *testing.T) {
	cfg := testConfig(t)

	// Stored weekly series: one week above the batch threshold.
	weeklyObs := []trends.WeeklyObservation{
		{Ticker: "AAPL", WeekStart: date(2024, 3, 10), Value: 90},
		{Ticker: "AAPL", WeekStart: date(2024, 3, 17), Value: 50},
	}
	if err := trends.WriteWeeklyCSV(cfg.Paths.WeeklyDir, "AAPL", 2024, weeklyObs); err != nil {
		t.Fatal(err)
	}

	// Excess series covering the window around the spike week start.
	excessObs := []returns.Observation{
		{Ticker: "AAPL", Date: date(2024, 3, 11), TickerReturn: 0.02, BenchmarkReturn: 0.01, Excess: 0.01},
		{Ticker: "AAPL", Date: date(2024, 3, 12), TickerReturn: 0.04, BenchmarkReturn: 0.01, Excess: 0.03},
		{Ticker: "AAPL", Date: date(2024, 3, 13), TickerReturn: 0, BenchmarkReturn: 0.01, Excess: -0.01},
	}
	if err := returns.WriteExcessCSV(cfg.Paths.ExcessDir, "AAPL", "SPY", 2024, excessObs); err != nil {
		t.Fatal(err)
	}

	weekly := trends.NewCSVSource(cfg.Paths.WeeklyDir, false)
	p := New(cfg, weekly, nil, nil)

	if err := p.RunConjunction(context.Background()); err != nil {
		t.Fatalf("Expected conjunction run to succeed, got %v", err)
	}

	data, err := os.ReadFile(store.ConjunctionPath(cfg.Paths.ConjunctionDir, "AAPL"))
	if err != nil {
		t.Fatalf("Expected conjunction file written, got %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "2024-03-10") {
		t.Errorf("Expected anchor week 2024-03-10 in conjunction file, got %q", content)
	}
	if !strings.Contains(content, "3.000%") {
		t.Errorf("Expected max excess 3.000%% in conjunction file, got %q", content)
	}

	// The de-overlapped weekly audit file holds only the spike week.
	noOverlap, err := trends.ReadWeeklyCSV(cfg.Paths.NoOverlapDir, "AAPL", 2024)
	if err != nil {
		t.Fatalf("Expected no-overlap file readable, got %v", err)
	}
	if len(noOverlap) != 1 || !noOverlap[0].WeekStart.Equal(date(2024, 3, 10)) {
		t.Errorf("Expected only the spike week kept, got %+v", noOverlap)
	}

	if err := p.RunSummary(context.Background()); err != nil {
		t.Fatalf("Expected summary run to succeed, got %v", err)
	}

	overall, err := os.ReadFile(store.OverallSummaryPath(cfg.Paths.ConjunctionDir))
	if err != nil {
		t.Fatalf("Expected overall summary written, got %v", err)
	}
	// Max positive day is the 2nd of 3 window days, kept non-negative for 1 day.
	if !strings.Contains(string(overall), "AAPL,2.00,1.00") {
		t.Errorf("Expected AAPL averages in overall summary, got %q", string(overall))
	}
}
