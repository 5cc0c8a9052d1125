package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"gst-research/internal/api"
	"gst-research/internal/logger"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonClient fetches daily aggregate bars from Polygon.io. Its only role
// in this pipeline is producing the benchmark's observed trading dates,
// which define the trading calendar for a year.
type PolygonClient struct {
	api     *api.Client
	limiter *rate.Limiter
	retry   *api.RetryConfig
	apiKey  string
}

// NewPolygonClient creates a Polygon client. perMinute respects the free
// tier's call budget.
func NewPolygonClient(apiKey string, perMinute float64) *PolygonClient {
	return &PolygonClient{
		api: api.NewClient(
			api.WithBaseURL(polygonBaseURL),
			api.WithTimeout(30*time.Second),
			api.WithLogging(true),
		),
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		retry:   api.DefaultRetryConfig(),
		apiKey:  apiKey,
	}
}

// aggsResponse mirrors the fields of Polygon's aggregates payload this
// client consumes.
type aggsResponse struct {
	Results []struct {
		Timestamp int64   `json:"t"` // ms since epoch
		Close     float64 `json:"c"`
	} `json:"results"`
	ResultsCount int `json:"resultsCount"`
}

func (c *PolygonClient) dailyAggs(ctx context.Context, symbol string, year int) (*aggsResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("polygon API key is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"/v2/aggs/ticker/%s/range/1/day/%d-01-01/%d-12-31?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		symbol, year, year, c.apiKey,
	)
	resp, err := c.api.GETWithRetry(ctx, url, c.retry)
	if err != nil {
		return nil, err
	}

	var parsed aggsResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// BenchmarkDates fetches the trading dates observed for symbol in year.
// An empty result is an error: a missing calendar must fail loudly, not
// produce wrong anchors downstream.
func (c *PolygonClient) BenchmarkDates(ctx context.Context, symbol string, year int) ([]time.Time, error) {
	parsed, err := c.dailyAggs(ctx, symbol, year)
	if err != nil {
		return nil, err
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("polygon returned no daily bars for %s in %d", symbol, year)
	}

	dates := make([]time.Time, 0, len(parsed.Results))
	for _, bar := range parsed.Results {
		dates = append(dates, time.UnixMilli(bar.Timestamp).UTC().Truncate(24*time.Hour))
	}
	logger.Info(ctx, "Fetched benchmark trading days",
		"symbol", symbol, "year", year, "days", len(dates),
		"last", dates[len(dates)-1].Format("2006-01-02"))
	return dates, nil
}

// BenchmarkCalendarSource adapts the client to calendar.TradingDaySource for
// a fixed benchmark symbol.
type BenchmarkCalendarSource struct {
	Client    *PolygonClient
	Benchmark string
}

func (s *BenchmarkCalendarSource) TradingDates(ctx context.Context, year int) ([]time.Time, error) {
	return s.Client.BenchmarkDates(ctx, s.Benchmark, year)
}
