package returns

import (
	"os"
	"strings"
	"testing"
)

func TestFormatPct(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{-0.0417, "-4.170%"},
		{0.0123, "1.230%"},
		{0, "0.000%"},
		{0.1, "10.000%"},
	}
	for _, c := range cases {
		if got := FormatPct(c.in); got != c.want {
			t.Errorf("FormatPct(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestExcessCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	obs := []Observation{
		{Ticker: "AAPL", Date: date(2024, 1, 3), TickerReturn: 0.03, BenchmarkReturn: 0.01, Excess: 0.02},
		{Ticker: "AAPL", Date: date(2024, 1, 4), TickerReturn: -0.0517, BenchmarkReturn: -0.01, Excess: -0.0417},
	}

	if err := WriteExcessCSV(dir, "AAPL", "SPY", 2024, obs); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}

	got, err := ReadExcessCSV(dir, "AAPL", 2024)
	if err != nil {
		t.Fatalf("Expected read to succeed, got %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 observations back, got %d", len(got))
	}
	if !got[0].Date.Equal(date(2024, 1, 3)) {
		t.Errorf("Expected first date Jan 3, got %v", got[0].Date)
	}
	if got[0].Excess != 0.02 {
		t.Errorf("Expected first excess 0.02, got %v", got[0].Excess)
	}
	if got[1].Excess != -0.0417 {
		t.Errorf("Expected second excess -0.0417, got %v", got[1].Excess)
	}
}

func TestExcessCSVHeaderColumns(t *testing.T) {
	dir := t.TempDir()
	if err := WriteExcessCSV(dir, "TSLA", "SPY", 2024, nil); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}

	data, err := os.ReadFile(ExcessPath(dir, "TSLA", 2024))
	if err != nil {
		t.Fatalf("Expected file to exist, got %v", err)
	}

	header := strings.Split(strings.TrimSpace(string(data)), "\n")[0]
	for _, want := range []string{"Date", "TSLA Daily Return", "SPY Daily Return", "Excess Daily Return (%)"} {
		if !strings.Contains(header, want) {
			t.Errorf("Expected header to contain %q, got %q", want, header)
		}
	}
}

func TestReadExcessCSVDropsBadRows(t *testing.T) {
	dir := t.TempDir()
	content := "Date,Excess Daily Return\n" +
		"2024-01-03,0.0200\n" +
		"not-a-date,0.0100\n" +
		"2024-01-04,not-a-number\n"
	if err := os.WriteFile(ExcessPath(dir, "AAPL", 2024), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadExcessCSV(dir, "AAPL", 2024)
	if err != nil {
		t.Fatalf("Expected read to succeed, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected only the valid row, got %d rows", len(got))
	}
}

func TestReadExcessSpanAcrossYears(t *testing.T) {
	dir := t.TempDir()

	dec := []Observation{
		{Ticker: "AAPL", Date: date(2023, 12, 28), Excess: 0.01},
		{Ticker: "AAPL", Date: date(2023, 12, 29), Excess: -0.005},
	}
	jan := []Observation{
		{Ticker: "AAPL", Date: date(2024, 1, 2), Excess: 0.02},
		{Ticker: "AAPL", Date: date(2024, 1, 15), Excess: 0.03}, // outside the span
	}
	if err := WriteExcessCSV(dir, "AAPL", "SPY", 2023, dec); err != nil {
		t.Fatal(err)
	}
	if err := WriteExcessCSV(dir, "AAPL", "SPY", 2024, jan); err != nil {
		t.Fatal(err)
	}

	got, err := ReadExcessSpan(dir, "AAPL", date(2023, 12, 28), date(2024, 1, 10))
	if err != nil {
		t.Fatalf("Expected span read to succeed, got %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 observations in span, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Error("Expected span observations in date order")
		}
	}
}

func TestReadExcessSpanMissingYearFile(t *testing.T) {
	dir := t.TempDir()
	jan := []Observation{{Ticker: "AAPL", Date: date(2024, 1, 2), Excess: 0.02}}
	if err := WriteExcessCSV(dir, "AAPL", "SPY", 2024, jan); err != nil {
		t.Fatal(err)
	}

	// Span reaches back into 2023, which has no file.
	got, err := ReadExcessSpan(dir, "AAPL", date(2023, 12, 28), date(2024, 1, 10))
	if err != nil {
		t.Fatalf("Expected missing year file to be skipped, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(got))
	}
}
