package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlap policy names accepted in config.
const (
	OverlapPolicyWindow   = "WINDOW"
	OverlapPolicyFixedGap = "FIXED_GAP"
)

type Config struct {
	Tickers   []string `yaml:"tickers"`
	Years     []int    `yaml:"years"`
	Benchmark string   `yaml:"benchmark"`
	Trends    struct {
		Geo          string `yaml:"geo"`
		AddStockTerm bool   `yaml:"add_stock_term"`
		Source       string `yaml:"source"` // LIVE or CSV
	} `yaml:"trends"`
	Detection struct {
		LiveThreshold  float64 `yaml:"live_threshold"`
		BatchThreshold float64 `yaml:"batch_threshold"`
	} `yaml:"detection"`
	Overlap struct {
		EventsPolicy string `yaml:"events_policy"`
		BatchPolicy  string `yaml:"batch_policy"`
		MinGapDays   int    `yaml:"min_gap_days"`
	} `yaml:"overlap"`
	Workers int `yaml:"workers"`
	Rate    struct {
		TrendsPerMinute  float64 `yaml:"trends_per_minute"`
		PolygonPerMinute float64 `yaml:"polygon_per_minute"`
		YahooPerMinute   float64 `yaml:"yahoo_per_minute"`
	} `yaml:"rate"`
	Paths struct {
		WeeklyDir      string `yaml:"weekly_dir"`
		NoOverlapDir   string `yaml:"no_overlap_dir"`
		ExcessDir      string `yaml:"excess_dir"`
		ConjunctionDir string `yaml:"conjunction_dir"`
		EventsFile     string `yaml:"events_file"`
	} `yaml:"paths"`
	PolygonAPIKeyEnv string `yaml:"polygon_api_key_env"`
}

func (c *Config) Validate() error {
	if len(c.Tickers) == 0 {
		return errors.New("tickers cannot be empty")
	}
	if len(c.Years) == 0 {
		return errors.New("years cannot be empty")
	}
	if c.Detection.LiveThreshold < 0 || c.Detection.LiveThreshold > 100 {
		return fmt.Errorf("detection.live_threshold must be within 0-100, got %.1f", c.Detection.LiveThreshold)
	}
	if c.Detection.BatchThreshold < 0 || c.Detection.BatchThreshold > 100 {
		return fmt.Errorf("detection.batch_threshold must be within 0-100, got %.1f", c.Detection.BatchThreshold)
	}
	if p := c.Overlap.EventsPolicy; p != OverlapPolicyWindow && p != OverlapPolicyFixedGap {
		return fmt.Errorf("overlap.events_policy must be '%s' or '%s', got '%s'", OverlapPolicyWindow, OverlapPolicyFixedGap, p)
	}
	if p := c.Overlap.BatchPolicy; p != OverlapPolicyWindow && p != OverlapPolicyFixedGap {
		return fmt.Errorf("overlap.batch_policy must be '%s' or '%s', got '%s'", OverlapPolicyWindow, OverlapPolicyFixedGap, p)
	}
	if c.Overlap.MinGapDays <= 0 {
		return fmt.Errorf("overlap.min_gap_days must be positive, got %d", c.Overlap.MinGapDays)
	}
	if c.Trends.Source != "LIVE" && c.Trends.Source != "CSV" {
		return fmt.Errorf("trends.source must be 'LIVE' or 'CSV', got '%s'", c.Trends.Source)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Benchmark == "" {
		c.Benchmark = "SPY"
	}
	if c.Trends.Source == "" {
		c.Trends.Source = "LIVE"
	}
	if c.Detection.LiveThreshold == 0 {
		c.Detection.LiveThreshold = 80
	}
	if c.Detection.BatchThreshold == 0 {
		c.Detection.BatchThreshold = 85
	}
	if c.Overlap.EventsPolicy == "" {
		c.Overlap.EventsPolicy = OverlapPolicyWindow
	}
	if c.Overlap.BatchPolicy == "" {
		c.Overlap.BatchPolicy = OverlapPolicyFixedGap
	}
	if c.Overlap.MinGapDays == 0 {
		c.Overlap.MinGapDays = 21
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Rate.TrendsPerMinute == 0 {
		c.Rate.TrendsPerMinute = 10
	}
	if c.Rate.PolygonPerMinute == 0 {
		c.Rate.PolygonPerMinute = 5
	}
	if c.Rate.YahooPerMinute == 0 {
		c.Rate.YahooPerMinute = 30
	}
	if c.Paths.WeeklyDir == "" {
		c.Paths.WeeklyDir = "data/gst/weekly"
	}
	if c.Paths.NoOverlapDir == "" {
		c.Paths.NoOverlapDir = "data/gst/no_overlap"
	}
	if c.Paths.ExcessDir == "" {
		c.Paths.ExcessDir = "data/excess"
	}
	if c.Paths.ConjunctionDir == "" {
		c.Paths.ConjunctionDir = "data/conjunction"
	}
	if c.Paths.EventsFile == "" {
		c.Paths.EventsFile = "data/gst_events.csv"
	}
	if c.PolygonAPIKeyEnv == "" {
		c.PolygonAPIKeyEnv = "POLYGON_API_KEY"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
