package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"gst-research/internal/conjunction"
	"gst-research/internal/events"
	"gst-research/internal/returns"
)

const dateLayout = "2006-01-02"

// EventRow is one surviving spike event in the events table. Column names
// and flag encodings match the downstream consumers exactly.
type EventRow struct {
	Ticker                   string  `csv:"ticker"`
	GSTWeekStart             string  `csv:"gst_week_start"`
	GSTWeekEnd               string  `csv:"gst_week_end"`
	GSTValue                 float64 `csv:"gst_value"`
	AnchorDate               string  `csv:"anchor_date"`
	AnchorShiftedHolidayFlag int     `csv:"anchor_shifted_holiday_flag"`
	OverlapDroppedLaterFlag  int     `csv:"overlap_dropped_later_flag"`
	WindowStart              string  `csv:"window_start"`
	WindowEnd                string  `csv:"window_end"`
	SearchBasis              string  `csv:"search_basis"`
}

// EventRows converts spike events into table rows sorted by anchor date,
// then ticker.
func EventRows(evs []events.SpikeEvent) []EventRow {
	rows := make([]EventRow, 0, len(evs))
	for _, ev := range evs {
		rows = append(rows, EventRow{
			Ticker:                   ev.Ticker,
			GSTWeekStart:             ev.WeekStart.Format(dateLayout),
			GSTWeekEnd:               ev.WeekEnd.Format(dateLayout),
			GSTValue:                 ev.Value,
			AnchorDate:               ev.AnchorDate.Format(dateLayout),
			AnchorShiftedHolidayFlag: boolFlag(ev.AnchorShifted),
			OverlapDroppedLaterFlag:  boolFlag(ev.OverlapDroppedLater),
			WindowStart:              ev.WindowStart.Format(dateLayout),
			WindowEnd:                ev.WindowEnd.Format(dateLayout),
			SearchBasis:              ev.SearchBasis,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AnchorDate != rows[j].AnchorDate {
			return rows[i].AnchorDate < rows[j].AnchorDate
		}
		return rows[i].Ticker < rows[j].Ticker
	})
	return rows
}

// WriteEvents writes the events table, header-only when empty.
func WriteEvents(path string, evs []events.SpikeEvent) error {
	return writeCSV(path, EventRows(evs))
}

// ConjunctionRow is one event-window join in a per-ticker conjunction file.
// Optional statistics are empty strings when not applicable: absence, not
// zero, encodes "no data".
type ConjunctionRow struct {
	Ticker               string `csv:"ticker"`
	Year                 int    `csv:"year"`
	AnchorWeekStart      string `csv:"anchor_week_start"`
	WindowStart          string `csv:"window_start"`
	WindowEnd            string `csv:"window_end"`
	MaxAbsExcessDate     string `csv:"max_abs_excess_return_date"`
	MaxAbsExcessPct      string `csv:"max_abs_excess_return_pct"`
	PosInWindowAbs       string `csv:"pos_in_window_abs"`
	MaxPosExcessDate     string `csv:"max_pos_excess_return_date"`
	MaxPosExcessPct      string `csv:"max_pos_excess_return_pct"`
	PosInWindowPos       string `csv:"pos_in_window_pos"`
	PosStreakDaysFromMax string `csv:"pos_streak_days_from_max"`
	NumTradingDays       int    `csv:"num_trading_days"`
}

// ConjunctionRows converts records into rows sorted by year descending then
// anchor ascending, the reading order analysts expect in the stacked files.
func ConjunctionRows(recs []conjunction.Record) []ConjunctionRow {
	rows := make([]ConjunctionRow, 0, len(recs))
	for _, rec := range recs {
		row := ConjunctionRow{
			Ticker:          rec.Ticker,
			Year:            rec.Year,
			AnchorWeekStart: rec.AnchorWeekStart.Format(dateLayout),
			WindowStart:     rec.WindowStart.Format(dateLayout),
			WindowEnd:       rec.WindowEnd.Format(dateLayout),
			NumTradingDays:  rec.NumTradingDays,
		}
		if rec.MaxAbs != nil {
			row.MaxAbsExcessDate = rec.MaxAbs.Date.Format(dateLayout)
			row.MaxAbsExcessPct = returns.FormatPct(rec.MaxAbs.Value)
			row.PosInWindowAbs = strconv.Itoa(rec.MaxAbs.Position)
		}
		if rec.MaxPos != nil {
			row.MaxPosExcessDate = rec.MaxPos.Date.Format(dateLayout)
			row.MaxPosExcessPct = returns.FormatPct(rec.MaxPos.Value)
			row.PosInWindowPos = strconv.Itoa(rec.MaxPos.Position)
			row.PosStreakDaysFromMax = strconv.Itoa(rec.PosStreakDays)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year > rows[j].Year
		}
		return rows[i].AnchorWeekStart < rows[j].AnchorWeekStart
	})
	return rows
}

// ConjunctionPath returns the per-ticker conjunction file path.
func ConjunctionPath(dir, ticker string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_conjunction.csv", ticker))
}

// WriteConjunction writes one ticker's conjunction file.
func WriteConjunction(dir, ticker string, recs []conjunction.Record) error {
	return writeCSV(ConjunctionPath(dir, ticker), ConjunctionRows(recs))
}

// ReadConjunction loads a per-ticker conjunction file back into the fields
// the summarizer needs. Rows whose numeric cells fail to parse keep the
// empty-sentinel semantics (treated as "no data").
func ReadConjunction(dir, ticker string) ([]conjunction.Record, error) {
	f, err := os.Open(ConjunctionPath(dir, ticker))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []ConjunctionRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, err
	}

	recs := make([]conjunction.Record, 0, len(rows))
	for _, row := range rows {
		rec := conjunction.Record{
			Ticker:         row.Ticker,
			Year:           row.Year,
			NumTradingDays: row.NumTradingDays,
		}
		if ws, err := time.Parse(dateLayout, row.AnchorWeekStart); err == nil {
			rec.AnchorWeekStart = ws
		}
		if pos, err := strconv.Atoi(row.PosInWindowPos); err == nil {
			rec.MaxPos = &conjunction.DayStat{Position: pos}
			if d, err := time.Parse(dateLayout, row.MaxPosExcessDate); err == nil {
				rec.MaxPos.Date = d
			}
			if streak, err := strconv.Atoi(row.PosStreakDaysFromMax); err == nil {
				rec.PosStreakDays = streak
			}
		}
		if pos, err := strconv.Atoi(row.PosInWindowAbs); err == nil {
			rec.MaxAbs = &conjunction.DayStat{Position: pos}
			if d, err := time.Parse(dateLayout, row.MaxAbsExcessDate); err == nil {
				rec.MaxAbs.Date = d
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SummaryRow is one line of a per-ticker or overall summary table.
type SummaryRow struct {
	Ticker              string `csv:"ticker"`
	AvgPosInWindowPos   string `csv:"avg_pos_in_window_pos"`
	AvgPosStreakFromMax string `csv:"avg_pos_streak_days_from_max"`
}

func summaryRow(s conjunction.Summary) SummaryRow {
	row := SummaryRow{Ticker: s.Ticker}
	if s.AvgPosInWindowPos != nil {
		row.AvgPosInWindowPos = strconv.FormatFloat(*s.AvgPosInWindowPos, 'f', 2, 64)
	}
	if s.AvgPosStreakDays != nil {
		row.AvgPosStreakFromMax = strconv.FormatFloat(*s.AvgPosStreakDays, 'f', 2, 64)
	}
	return row
}

// SummaryPath returns the per-ticker summary file path.
func SummaryPath(dir, ticker string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_conjunction_summary.csv", ticker))
}

// OverallSummaryPath returns the cross-ticker summary file path.
func OverallSummaryPath(dir string) string {
	return filepath.Join(dir, "overall_conjunction_summary.csv")
}

// WriteSummary writes one ticker's summary file.
func WriteSummary(dir, ticker string, s conjunction.Summary) error {
	return writeCSV(SummaryPath(dir, ticker), []SummaryRow{summaryRow(s)})
}

// WriteOverallSummary writes the cross-ticker table, one row per ticker.
func WriteOverallSummary(dir string, summaries []conjunction.Summary) error {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, summaryRow(s))
	}
	return writeCSV(OverallSummaryPath(dir), rows)
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeCSV marshals rows to path, creating parent directories. An empty
// table still gets its header row so downstream readers see the schema.
func writeCSV[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}
