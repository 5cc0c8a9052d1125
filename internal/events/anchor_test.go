package events

import (
	"context"
	"testing"
	"time"

	"gst-research/internal/calendar"
)

func mustIndex(t *testing.T, year int, dates ...time.Time) *calendar.Index {
	t.Helper()
	idx, err := calendar.New(year, dates)
	if err != nil {
		t.Fatalf("Expected calendar to build, got %v", err)
	}
	return idx
}

func TestResolveAnchorOnTradingDay(t *testing.T) {
	// Week of Sunday Jan 7; the Wednesday is Jan 10.
	cal := mustIndex(t, 2024, date(2024, 1, 10), date(2024, 1, 11))
	ev := SpikeEvent{Ticker: "AAPL", WeekStart: date(2024, 1, 7)}

	ResolveAnchor(context.Background(), &ev, cal)

	if !ev.AnchorDate.Equal(date(2024, 1, 10)) {
		t.Errorf("Expected anchor on the Wednesday, got %v", ev.AnchorDate)
	}
	if ev.AnchorShifted {
		t.Error("Expected no shift when the Wednesday is a trading day")
	}
}

func TestResolveAnchorShiftsOverHoliday(t *testing.T) {
	// Wednesday Jan 10 missing from the calendar, Thursday present.
	cal := mustIndex(t, 2024, date(2024, 1, 9), date(2024, 1, 11))
	ev := SpikeEvent{Ticker: "AAPL", WeekStart: date(2024, 1, 7)}

	ResolveAnchor(context.Background(), &ev, cal)

	if !ev.AnchorDate.Equal(date(2024, 1, 11)) {
		t.Errorf("Expected anchor shifted to Thursday, got %v", ev.AnchorDate)
	}
	if !ev.AnchorShifted {
		t.Error("Expected shifted flag to be set")
	}
}

func TestResolveAnchorWalksMultipleDays(t *testing.T) {
	// Wednesday through Friday missing; the next trading day is Monday Jan 15.
	cal := mustIndex(t, 2024, date(2024, 1, 15), date(2024, 1, 16))
	ev := SpikeEvent{Ticker: "AAPL", WeekStart: date(2024, 1, 7)}

	ResolveAnchor(context.Background(), &ev, cal)

	if !ev.AnchorDate.Equal(date(2024, 1, 15)) {
		t.Errorf("Expected anchor on the next Monday, got %v", ev.AnchorDate)
	}
	if !ev.AnchorShifted {
		t.Error("Expected shifted flag to be set")
	}
}

func TestResolveAnchorPastCalendarEnd(t *testing.T) {
	// The calendar lags the spike week entirely; an anchor is still emitted.
	cal := mustIndex(t, 2024, date(2024, 1, 2))
	ev := SpikeEvent{Ticker: "AAPL", WeekStart: date(2024, 1, 7)}

	ResolveAnchor(context.Background(), &ev, cal)

	if ev.AnchorDate.IsZero() {
		t.Fatal("Expected an anchor to be emitted even past the calendar end")
	}
	if !ev.AnchorDate.After(cal.MaxDate()) {
		t.Errorf("Expected anchor past the calendar max date, got %v", ev.AnchorDate)
	}
}

func TestResolveAnchorsInPlace(t *testing.T) {
	cal := mustIndex(t, 2024, date(2024, 1, 10), date(2024, 2, 7))
	evs := []SpikeEvent{
		{Ticker: "AAPL", WeekStart: date(2024, 1, 7)},
		{Ticker: "AAPL", WeekStart: date(2024, 2, 4)},
	}

	ResolveAnchors(context.Background(), evs, cal)

	if !evs[0].AnchorDate.Equal(date(2024, 1, 10)) {
		t.Errorf("Expected first anchor 2024-01-10, got %v", evs[0].AnchorDate)
	}
	if !evs[1].AnchorDate.Equal(date(2024, 2, 7)) {
		t.Errorf("Expected second anchor 2024-02-07, got %v", evs[1].AnchorDate)
	}
}
