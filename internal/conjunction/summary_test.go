package conjunction

import (
	"testing"
)

func recWith(posInWindow, streak int) Record {
	r := Record{Ticker: "AAPL", NumTradingDays: 15}
	if posInWindow > 0 {
		r.MaxPos = &DayStat{Position: posInWindow, Value: 0.01}
		r.PosStreakDays = streak
	}
	return r
}

func TestSummarize(t *testing.T) {
	recs := []Record{
		recWith(3, 2),
		recWith(5, 4),
	}

	s := Summarize("AAPL", recs)

	if s.AvgPosInWindowPos == nil {
		t.Fatal("Expected average position to be set")
	}
	if *s.AvgPosInWindowPos != 4.0 {
		t.Errorf("Expected average position 4.0, got %v", *s.AvgPosInWindowPos)
	}
	if s.AvgPosStreakDays == nil {
		t.Fatal("Expected average streak to be set")
	}
	if *s.AvgPosStreakDays != 3.0 {
		t.Errorf("Expected average streak 3.0, got %v", *s.AvgPosStreakDays)
	}
}

func TestSummarizeExcludesEmptyRecords(t *testing.T) {
	// Records without a max-positive day contribute to neither average.
	recs := []Record{
		recWith(3, 2),
		recWith(0, 0),
		recWith(5, 4),
		recWith(0, 0),
	}

	s := Summarize("AAPL", recs)

	if s.AvgPosInWindowPos == nil || *s.AvgPosInWindowPos != 4.0 {
		t.Errorf("Expected empty records excluded from the position average, got %v", s.AvgPosInWindowPos)
	}
}

func TestSummarizeExcludesZeroStreaks(t *testing.T) {
	// A record can have a max-positive day but a streak cut to zero is
	// excluded from the streak mean rather than averaged in.
	recs := []Record{
		recWith(2, 3),
		recWith(4, 0),
	}

	s := Summarize("AAPL", recs)

	if s.AvgPosInWindowPos == nil || *s.AvgPosInWindowPos != 3.0 {
		t.Errorf("Expected position average 3.0, got %v", s.AvgPosInWindowPos)
	}
	if s.AvgPosStreakDays == nil || *s.AvgPosStreakDays != 3.0 {
		t.Errorf("Expected streak average over the single positive streak, got %v", s.AvgPosStreakDays)
	}
}

func TestSummarizeStreakMeanSkipsZeros(t *testing.T) {
	// Streaks [3, 0, 5, 0]: the zeros mean "no positive day", so the mean is
	// over {3, 5}, never 11/4.
	recs := []Record{
		recWith(1, 3),
		recWith(0, 0),
		recWith(1, 5),
		recWith(0, 0),
	}

	s := Summarize("AAPL", recs)

	if s.AvgPosStreakDays == nil {
		t.Fatal("Expected streak average to be set")
	}
	if *s.AvgPosStreakDays != 4.0 {
		t.Errorf("Expected streak average 4.0, got %v", *s.AvgPosStreakDays)
	}
}

func TestSummarizeRounding(t *testing.T) {
	recs := []Record{
		recWith(1, 1),
		recWith(2, 1),
		recWith(2, 2),
	}

	s := Summarize("AAPL", recs)

	if *s.AvgPosInWindowPos != 1.67 {
		t.Errorf("Expected position average rounded to 1.67, got %v", *s.AvgPosInWindowPos)
	}
	if *s.AvgPosStreakDays != 1.33 {
		t.Errorf("Expected streak average rounded to 1.33, got %v", *s.AvgPosStreakDays)
	}
}

func TestSummarizeNoRecords(t *testing.T) {
	s := Summarize("AAPL", nil)

	if s.AvgPosInWindowPos != nil {
		t.Error("Expected nil position average for no records")
	}
	if s.AvgPosStreakDays != nil {
		t.Error("Expected nil streak average for no records")
	}
	if s.Ticker != "AAPL" {
		t.Errorf("Expected ticker preserved, got %q", s.Ticker)
	}
}

func TestSummarizeAll(t *testing.T) {
	perTicker := map[string][]Record{
		"TSLA": {recWith(2, 1)},
		"AAPL": {recWith(3, 2), recWith(5, 4)},
		"MSFT": nil,
	}

	out := SummarizeAll(perTicker)

	if len(out) != 3 {
		t.Fatalf("Expected 3 summaries, got %d", len(out))
	}
	if out[0].Ticker != "AAPL" || out[1].Ticker != "MSFT" || out[2].Ticker != "TSLA" {
		t.Errorf("Expected ticker-sorted output, got %s, %s, %s", out[0].Ticker, out[1].Ticker, out[2].Ticker)
	}
	if out[0].AvgPosInWindowPos == nil || *out[0].AvgPosInWindowPos != 4.0 {
		t.Errorf("Expected AAPL average re-derived from its records, got %v", out[0].AvgPosInWindowPos)
	}
	if out[1].AvgPosInWindowPos != nil {
		t.Error("Expected MSFT with no records to have nil averages")
	}
}
