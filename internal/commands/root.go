package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gst-research/internal/calendar"
	"gst-research/internal/logger"
	"gst-research/internal/marketdata"
	"gst-research/internal/pipeline"
	"gst-research/internal/store"
	"gst-research/internal/trends"
)

var configPath string

var rootCMD = &cobra.Command{
	Use:   "gstresearch",
	Short: "Google Search Trends attention-spike research pipeline",
	Long: `Detects weekly attention spikes in Google Search Trends interest for a
set of instruments, anchors them on the trading calendar, removes
overlapping events, and measures excess returns against a benchmark in
the windows around each event.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return logger.Init()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Shutdown(cmd.Context())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCMD.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCMD.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	rootCMD.AddCommand(eventsCMD, weeklyCMD, excessCMD, conjunctionCMD, summaryCMD)
}

func loadConfig() (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}

// weeklySource picks the live Trends client or the file-backed source
// according to trends.source.
func weeklySource(cfg *store.Config) trends.WeeklySource {
	if cfg.Trends.Source == "CSV" {
		return trends.NewCSVSource(cfg.Paths.WeeklyDir, cfg.Trends.AddStockTerm)
	}
	return trends.NewClient(cfg.Trends.Geo, cfg.Trends.AddStockTerm, cfg.Rate.TrendsPerMinute)
}

func polygonClient(cfg *store.Config) (*marketdata.PolygonClient, error) {
	key := os.Getenv(cfg.PolygonAPIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing Polygon API key: set %s", cfg.PolygonAPIKeyEnv)
	}
	return marketdata.NewPolygonClient(key, cfg.Rate.PolygonPerMinute), nil
}

func newPipeline(cfg *store.Config, needsCalendar, needsPrices bool) (*pipeline.Pipeline, error) {
	var cal calendar.TradingDaySource
	if needsCalendar {
		pc, err := polygonClient(cfg)
		if err != nil {
			return nil, err
		}
		cal = &marketdata.BenchmarkCalendarSource{Client: pc, Benchmark: cfg.Benchmark}
	}

	var prices pipeline.PriceSource
	if needsPrices {
		prices = marketdata.NewYahooClient(cfg.Rate.YahooPerMinute)
	}

	return pipeline.New(cfg, weeklySource(cfg), cal, prices), nil
}
