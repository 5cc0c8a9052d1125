package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"gst-research/internal/api"
	"gst-research/internal/logger"
	"gst-research/internal/returns"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches daily adjusted closes from the Yahoo Finance chart
// API, the price source behind the excess-return series.
type YahooClient struct {
	api     *api.Client
	limiter *rate.Limiter
	retry   *api.RetryConfig
}

// NewYahooClient creates a Yahoo chart client.
func NewYahooClient(perMinute float64) *YahooClient {
	return &YahooClient{
		api: api.NewClient(
			api.WithBaseURL(yahooChartBaseURL),
			api.WithTimeout(45*time.Second),
			api.WithLogging(true),
		),
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		retry:   api.DefaultRetryConfig(),
	}
}

// chartResponse mirrors the chart API envelope down to the adjusted closes.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Adjclose []struct {
					Adjclose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCloses fetches the adjusted close series for one ticker-year. Days
// with a null close (halts, data gaps) are dropped silently.
func (c *YahooClient) DailyCloses(ctx context.Context, ticker string, year int) ([]returns.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	url := fmt.Sprintf(
		"/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%7Csplit",
		ticker, start.Unix(), end.Unix(),
	)

	resp, err := c.api.GETWithRetry(ctx, url, c.retry, api.YahooFinanceHeaders())
	if err != nil {
		return nil, err
	}

	var parsed chartResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return nil, err
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error for %s: %s", ticker, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo returned no chart data for %s in %d", ticker, year)
	}

	result := parsed.Chart.Result[0]
	if len(result.Indicators.Adjclose) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s in %d has no adjusted closes", ticker, year)
	}
	closes := result.Indicators.Adjclose[0].Adjclose

	points := make([]returns.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, returns.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: *closes[i],
		})
	}
	logger.Debug(ctx, "Fetched daily closes", "ticker", ticker, "year", year, "days", len(points))
	return points, nil
}
