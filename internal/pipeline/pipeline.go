package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gst-research/internal/calendar"
	"gst-research/internal/conjunction"
	"gst-research/internal/events"
	"gst-research/internal/logger"
	"gst-research/internal/returns"
	"gst-research/internal/store"
	"gst-research/internal/trends"
)

// PriceSource supplies daily adjusted closes for one ticker-year.
type PriceSource interface {
	DailyCloses(ctx context.Context, ticker string, year int) ([]returns.PricePoint, error)
}

// Pipeline wires the detection, anchoring, overlap-resolution, and
// windowed-return stages together. Instruments are processed independently:
// per-instrument-year failures are absorbed as empty results, and only a
// failed calendar build aborts a year.
type Pipeline struct {
	cfg      *store.Config
	weekly   trends.WeeklySource
	calendar calendar.TradingDaySource
	prices   PriceSource
}

// New creates a pipeline over the given sources. Sources a command does not
// exercise may be nil.
func New(cfg *store.Config, weekly trends.WeeklySource, cal calendar.TradingDaySource, prices PriceSource) *Pipeline {
	return &Pipeline{cfg: cfg, weekly: weekly, calendar: cal, prices: prices}
}

func (p *Pipeline) overlapPolicy(name string) events.OverlapPolicy {
	if name == store.OverlapPolicyFixedGap {
		return events.FixedGapOverlap{MinGapDays: p.cfg.Overlap.MinGapDays}
	}
	return events.WindowOverlap{}
}

// RunEvents is the live-detection path for one year: pull weekly interest
// per ticker, detect spikes at the live threshold, anchor them on the
// trading calendar, de-overlap, and write the events table.
func (p *Pipeline) RunEvents(ctx context.Context, year int) error {
	op := logger.StartOperation(ctx, "events_run", "year", year, "tickers", len(p.cfg.Tickers))
	ctx = op.GetContext()

	// The calendar is built once and shared read-only across all instrument
	// workers; without it anchoring has no fallback, so failure aborts the
	// year.
	cal, err := calendar.Build(ctx, p.calendar, year)
	if err != nil {
		op.EndWithError(err)
		return fmt.Errorf("building trading calendar for %d: %w", year, err)
	}

	policy := p.overlapPolicy(p.cfg.Overlap.EventsPolicy)
	perTicker := make([][]events.SpikeEvent, len(p.cfg.Tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, ticker := range p.cfg.Tickers {
		g.Go(func() error {
			perTicker[i] = p.eventsForTicker(gctx, ticker, year, cal, policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		op.EndWithError(err)
		return err
	}

	var all []events.SpikeEvent
	for _, evs := range perTicker {
		all = append(all, evs...)
	}

	if err := store.WriteEvents(p.cfg.Paths.EventsFile, all); err != nil {
		op.EndWithError(err)
		return fmt.Errorf("writing events table: %w", err)
	}

	logger.Info(ctx, "Wrote events table", "path", p.cfg.Paths.EventsFile, "events", len(all))
	if len(all) == 0 {
		logger.Info(ctx, "No GST spikes were identified for the selected configuration")
	}
	op.End("events", len(all))
	return nil
}

// eventsForTicker runs detection through overlap resolution for one
// instrument. Failures are absorbed: the instrument contributes no events
// and processing continues for the others.
func (p *Pipeline) eventsForTicker(ctx context.Context, ticker string, year int, cal *calendar.Index, policy events.OverlapPolicy) []events.SpikeEvent {
	obs, err := p.weekly.FetchWeekly(ctx, ticker, year)
	if err != nil {
		logger.Warn(ctx, "Skipping ticker, no weekly data", "ticker", ticker, "year", year, "error", err)
		return nil
	}

	// Persist the raw pull so analysts can audit the underlying data.
	if err := trends.WriteWeeklyCSV(p.cfg.Paths.WeeklyDir, ticker, year, obs); err != nil {
		logger.Warn(ctx, "Failed to save raw weekly data", "ticker", ticker, "year", year, "error", err)
	}

	spikes := events.Detect(obs, p.cfg.Detection.LiveThreshold, p.weekly.Basis())
	if len(spikes) == 0 {
		logger.Info(ctx, "No GST spikes detected", "ticker", ticker, "year", year)
		return nil
	}
	for _, s := range spikes {
		logger.Spike(ctx, ticker, s.WeekStart.Format("2006-01-02"), s.Value)
	}

	events.ResolveAnchors(ctx, spikes, cal)
	kept := policy.Resolve(spikes)
	logger.Info(ctx, "Resolved overlaps", "ticker", ticker, "year", year,
		"detected", len(spikes), "kept", len(kept))
	return kept
}

// RunWeekly gathers raw weekly interest files for every configured
// ticker-year, the input of the historical batch path.
func (p *Pipeline) RunWeekly(ctx context.Context) error {
	op := logger.StartOperation(ctx, "weekly_run", "tickers", len(p.cfg.Tickers), "years", len(p.cfg.Years))
	ctx = op.GetContext()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, ticker := range p.cfg.Tickers {
		g.Go(func() error {
			for _, year := range p.cfg.Years {
				obs, err := p.weekly.FetchWeekly(gctx, ticker, year)
				if err != nil {
					logger.Warn(gctx, "Weekly pull failed", "ticker", ticker, "year", year, "error", err)
					obs = nil // header-only file keeps the per-year layout intact
				}
				if err := trends.WriteWeeklyCSV(p.cfg.Paths.WeeklyDir, ticker, year, obs); err != nil {
					return fmt.Errorf("writing weekly file for %s %d: %w", ticker, year, err)
				}
				logger.Info(gctx, "Saved weekly data", "ticker", ticker, "year", year, "weeks", len(obs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		op.EndWithError(err)
		return err
	}
	op.End()
	return nil
}

// RunExcess builds the per-ticker-year daily excess-return files against the
// configured benchmark.
func (p *Pipeline) RunExcess(ctx context.Context) error {
	op := logger.StartOperation(ctx, "excess_run", "tickers", len(p.cfg.Tickers), "years", len(p.cfg.Years))
	ctx = op.GetContext()

	for _, year := range p.cfg.Years {
		// One benchmark pull serves every instrument of the year.
		bench, err := p.prices.DailyCloses(ctx, p.cfg.Benchmark, year)
		if err != nil {
			logger.Warn(ctx, "Benchmark prices unavailable, skipping year",
				"benchmark", p.cfg.Benchmark, "year", year, "error", err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for _, ticker := range p.cfg.Tickers {
			g.Go(func() error {
				var obs []returns.Observation
				prices, err := p.prices.DailyCloses(gctx, ticker, year)
				if err != nil {
					logger.Warn(gctx, "Instrument prices unavailable", "ticker", ticker, "year", year, "error", err)
				} else {
					obs = returns.BuildExcess(ticker, prices, bench)
				}
				if err := returns.WriteExcessCSV(p.cfg.Paths.ExcessDir, ticker, p.cfg.Benchmark, year, obs); err != nil {
					return fmt.Errorf("writing excess file for %s %d: %w", ticker, year, err)
				}
				logger.Info(gctx, "Saved excess returns", "ticker", ticker, "year", year, "rows", len(obs))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			op.EndWithError(err)
			return err
		}
	}
	op.End()
	return nil
}

// RunConjunction is the historical batch path: filter stored weekly files at
// the batch threshold, de-overlap with the fixed-gap policy across all
// years, join each surviving event with its excess-return window, and write
// per-ticker conjunction and summary files.
func (p *Pipeline) RunConjunction(ctx context.Context) error {
	op := logger.StartOperation(ctx, "conjunction_run", "tickers", len(p.cfg.Tickers))
	ctx = op.GetContext()

	policy := p.overlapPolicy(p.cfg.Overlap.BatchPolicy)

	for _, ticker := range p.cfg.Tickers {
		kept := p.batchEventsForTicker(ctx, ticker, policy)

		recs := make([]conjunction.Record, 0, len(kept))
		for _, ev := range kept {
			start, end := conjunction.Window(ev.AnchorDate)
			window, err := returns.ReadExcessSpan(p.cfg.Paths.ExcessDir, ticker, start, end)
			if err != nil {
				logger.Warn(ctx, "Excess window unavailable", "ticker", ticker,
					"anchor", ev.AnchorDate.Format("2006-01-02"), "error", err)
				window = nil
			}
			recs = append(recs, conjunction.Analyze(ticker, ev.AnchorDate.Year(), ev.AnchorDate, window))
		}

		if err := store.WriteConjunction(p.cfg.Paths.ConjunctionDir, ticker, recs); err != nil {
			op.EndWithError(err)
			return fmt.Errorf("writing conjunction file for %s: %w", ticker, err)
		}
		if err := store.WriteSummary(p.cfg.Paths.ConjunctionDir, ticker, conjunction.Summarize(ticker, recs)); err != nil {
			op.EndWithError(err)
			return fmt.Errorf("writing summary file for %s: %w", ticker, err)
		}
		logger.Info(ctx, "Wrote conjunction records", "ticker", ticker, "records", len(recs))
	}

	op.End()
	return nil
}

// batchEventsForTicker pools spike hits across all configured years, anchors
// them on their week starts, and de-overlaps them as one sequence so the gap
// rule holds across year boundaries.
func (p *Pipeline) batchEventsForTicker(ctx context.Context, ticker string, policy events.OverlapPolicy) []events.SpikeEvent {
	var pooled []events.SpikeEvent
	for _, year := range p.cfg.Years {
		obs, err := trends.ReadWeeklyCSV(p.cfg.Paths.WeeklyDir, ticker, year)
		if err != nil {
			logger.Warn(ctx, "No weekly file", "ticker", ticker, "year", year, "error", err)
			continue
		}
		spikes := events.Detect(obs, p.cfg.Detection.BatchThreshold, "ticker")
		// The batch path anchors on the spike week start itself; the
		// trading-day walk applies only to the live events path.
		for i := range spikes {
			spikes[i].AnchorDate = spikes[i].WeekStart
		}
		pooled = append(pooled, spikes...)
	}

	kept := policy.Resolve(pooled)
	logger.Info(ctx, "De-overlapped batch hits", "ticker", ticker,
		"hits", len(pooled), "kept", len(kept))

	p.writeNoOverlapFiles(ctx, ticker, kept)
	return kept
}

// writeNoOverlapFiles re-splits the kept hits by year into audit files
// mirroring the weekly layout. Every configured year gets a file, header-only
// when it kept nothing.
func (p *Pipeline) writeNoOverlapFiles(ctx context.Context, ticker string, kept []events.SpikeEvent) {
	byYear := make(map[int][]trends.WeeklyObservation)
	for _, ev := range kept {
		y := ev.WeekStart.Year()
		byYear[y] = append(byYear[y], trends.WeeklyObservation{
			Ticker:    ticker,
			WeekStart: ev.WeekStart,
			Value:     ev.Value,
			Partial:   ev.Partial,
		})
	}
	for _, year := range p.cfg.Years {
		if err := trends.WriteWeeklyCSV(p.cfg.Paths.NoOverlapDir, ticker, year, byYear[year]); err != nil {
			logger.Warn(ctx, "Failed to save no-overlap file", "ticker", ticker, "year", year, "error", err)
		}
	}
}

// RunSummary builds the cross-instrument table from the per-event
// conjunction files, re-deriving the means from the underlying records.
func (p *Pipeline) RunSummary(ctx context.Context) error {
	op := logger.StartOperation(ctx, "summary_run", "tickers", len(p.cfg.Tickers))
	ctx = op.GetContext()

	perTicker := make(map[string][]conjunction.Record, len(p.cfg.Tickers))
	for _, ticker := range p.cfg.Tickers {
		recs, err := store.ReadConjunction(p.cfg.Paths.ConjunctionDir, ticker)
		if err != nil {
			logger.Warn(ctx, "No conjunction file", "ticker", ticker, "error", err)
			recs = nil
		}
		perTicker[ticker] = recs
	}

	summaries := conjunction.SummarizeAll(perTicker)
	if err := store.WriteOverallSummary(p.cfg.Paths.ConjunctionDir, summaries); err != nil {
		op.EndWithError(err)
		return fmt.Errorf("writing overall summary: %w", err)
	}

	logger.Info(ctx, "Wrote overall summary",
		"path", store.OverallSummaryPath(p.cfg.Paths.ConjunctionDir), "rows", len(summaries))
	op.End()
	return nil
}
