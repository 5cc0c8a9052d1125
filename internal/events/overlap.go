package events

import (
	"sort"
	"time"
)

// OverlapPolicy removes temporally overlapping spike events, keeping the
// earliest of any overlapping group and flagging kept events whose later
// overlaps were dropped. Two variants exist in the pipeline and are
// deliberately not unified: the live events path compares padded window
// intervals, the historical batch path enforces a fixed day gap between
// anchors.
type OverlapPolicy interface {
	Resolve(evs []SpikeEvent) []SpikeEvent
}

// WindowOverlap drops any event whose padded window starts on or before the
// end of the last kept event's window. Greedy, earliest wins.
type WindowOverlap struct{}

func (WindowOverlap) Resolve(evs []SpikeEvent) []SpikeEvent {
	if len(evs) == 0 {
		return nil
	}

	sorted := make([]SpikeEvent, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AnchorDate.Before(sorted[j].AnchorDate)
	})

	kept := make([]SpikeEvent, 0, len(sorted))
	var lastWindowEnd time.Time
	for _, ev := range sorted {
		if len(kept) > 0 && !ev.WindowStart.After(lastWindowEnd) {
			kept[len(kept)-1].OverlapDroppedLater = true
			continue
		}
		ev.OverlapDroppedLater = false
		kept = append(kept, ev)
		lastWindowEnd = ev.WindowEnd
	}
	return kept
}

// FixedGapOverlap first deduplicates exact same-week hits, then keeps an
// event only if its anchor date is at least MinGapDays after the previously
// kept anchor date. Same earliest-wins contract, parameterized on a day gap
// instead of window intervals.
type FixedGapOverlap struct {
	MinGapDays int
}

func (p FixedGapOverlap) Resolve(evs []SpikeEvent) []SpikeEvent {
	if len(evs) == 0 {
		return nil
	}

	sorted := make([]SpikeEvent, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AnchorDate.Before(sorted[j].AnchorDate)
	})

	kept := make([]SpikeEvent, 0, len(sorted))
	var lastKept time.Time
	seen := make(map[time.Time]struct{}, len(sorted))
	for _, ev := range sorted {
		if _, dup := seen[ev.AnchorDate]; dup {
			continue
		}
		seen[ev.AnchorDate] = struct{}{}

		if len(kept) > 0 && daysBetween(lastKept, ev.AnchorDate) < p.MinGapDays {
			kept[len(kept)-1].OverlapDroppedLater = true
			continue
		}
		ev.OverlapDroppedLater = false
		kept = append(kept, ev)
		lastKept = ev.AnchorDate
	}
	return kept
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
