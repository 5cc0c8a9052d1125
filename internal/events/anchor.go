package events

import (
	"context"

	"gst-research/internal/calendar"
	"gst-research/internal/logger"
)

// anchorOffsetDays places the anchor on the spike week's Wednesday.
const anchorOffsetDays = 3

// ResolveAnchor maps the event's week to a trading day: start at the week's
// Wednesday and walk forward one day at a time until landing on a trading
// day. The first shift sets AnchorShifted. If the candidate walks past the
// calendar's last known trading day (the index can lag near year-end), the
// candidate is used as-is with a warning; an anchor is always emitted.
func ResolveAnchor(ctx context.Context, ev *SpikeEvent, cal *calendar.Index) {
	anchor := calendar.Day(ev.WeekStart.AddDate(0, 0, anchorOffsetDays))
	shifted := false
	for !cal.Contains(anchor) {
		shifted = true
		anchor = anchor.AddDate(0, 0, 1)
		if anchor.After(cal.MaxDate()) {
			logger.CalendarGap(ctx, ev.Ticker,
				ev.WeekStart.Format("2006-01-02"),
				anchor.Format("2006-01-02"))
			break
		}
	}
	ev.AnchorDate = anchor
	ev.AnchorShifted = shifted
}

// ResolveAnchors resolves every event in place, preserving order.
func ResolveAnchors(ctx context.Context, evs []SpikeEvent, cal *calendar.Index) {
	for i := range evs {
		ResolveAnchor(ctx, &evs[i], cal)
	}
}
