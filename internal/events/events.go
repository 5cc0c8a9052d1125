package events

import (
	"time"

	"gst-research/internal/trends"
)

// SpikeEvent is a week whose combined search interest met the detection
// threshold, plus everything later stages attach to it: the resolved anchor
// trading day and the overlap bookkeeping flags.
type SpikeEvent struct {
	Ticker    string
	WeekStart time.Time
	WeekEnd   time.Time
	Value     float64
	Partial   bool

	// Window is the spike week padded by one week on each side, used for
	// overlap detection between events.
	WindowStart time.Time
	WindowEnd   time.Time

	// AnchorDate is the trading day representing this spike week.
	AnchorDate time.Time
	// AnchorShifted is set when the raw Wednesday fell on a non-trading day.
	AnchorShifted bool
	// OverlapDroppedLater is set on a kept event when a later overlapping
	// event was dropped because of it.
	OverlapDroppedLater bool

	// SearchBasis records which search terms produced the detection series.
	SearchBasis string
}

// windowPadDays pads the spike week by one week on each side.
const windowPadDays = 7

// Detect selects all weeks whose value meets the threshold, in ascending
// week order. Partial weeks are eligible; the flag rides along as metadata.
func Detect(obs []trends.WeeklyObservation, threshold float64, basis string) []SpikeEvent {
	var spikes []SpikeEvent
	for _, o := range obs {
		if o.Value < threshold {
			continue
		}
		weekEnd := o.WeekEnd()
		spikes = append(spikes, SpikeEvent{
			Ticker:      o.Ticker,
			WeekStart:   o.WeekStart,
			WeekEnd:     weekEnd,
			Value:       o.Value,
			Partial:     o.Partial,
			WindowStart: o.WeekStart.AddDate(0, 0, -windowPadDays),
			WindowEnd:   weekEnd.AddDate(0, 0, windowPadDays),
			SearchBasis: basis,
		})
	}
	return spikes
}
