package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gst-research/internal/api"
	"gst-research/internal/logger"
)

const (
	exploreURL   = "https://trends.google.com/trends/api/explore"
	multilineURL = "https://trends.google.com/trends/api/widgetdata/multiline"
)

// Client fetches weekly Google Trends interest series. When AddStockTerm is
// set it also pulls "<TICKER> stock" and combines the two series by pointwise
// maximum, matching how retail attention spills across both queries.
type Client struct {
	api          *api.Client
	limiter      *rate.Limiter
	geo          string
	addStockTerm bool
	retry        *api.RetryConfig
}

// NewClient creates a Trends client. perMinute bounds the request rate;
// Google throttles aggressive pulls with 429s.
func NewClient(geo string, addStockTerm bool, perMinute float64) *Client {
	return &Client{
		api: api.NewClient(
			api.WithTimeout(30*time.Second),
			api.WithLogging(true),
		),
		limiter:      rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		geo:          geo,
		addStockTerm: addStockTerm,
		retry:        api.DefaultRetryConfig(),
	}
}

// Basis describes the search terms behind the combined series.
func (c *Client) Basis() string {
	if c.addStockTerm {
		return "ticker|max(ticker,'ticker stock')"
	}
	return "ticker"
}

// FetchWeekly pulls the weekly interest series for one ticker-year.
func (c *Client) FetchWeekly(ctx context.Context, ticker string, year int) ([]WeeklyObservation, error) {
	terms := []string{ticker}
	if c.addStockTerm {
		terms = append(terms, ticker+" stock")
	}
	timeframe := fmt.Sprintf("%d-01-01 %d-12-31", year, year)

	token, req, err := c.exploreTimeseries(ctx, terms, timeframe)
	if err != nil {
		return nil, fmt.Errorf("trends explore failed for %s: %w", ticker, err)
	}

	perTerm, err := c.fetchMultiline(ctx, token, req, len(terms))
	if err != nil {
		return nil, fmt.Errorf("trends timeseries failed for %s: %w", ticker, err)
	}

	series := make([][]WeeklyObservation, len(perTerm))
	for i, termObs := range perTerm {
		for j := range termObs {
			termObs[j].Ticker = ticker
		}
		series[i] = termObs
	}

	combined := CombineMax(series...)

	// Google can spill edge weeks across year boundaries; keep only the
	// requested year.
	inYear := combined[:0]
	for _, obs := range combined {
		if obs.WeekStart.Year() == year {
			inYear = append(inYear, obs)
		}
	}
	logger.Debug(ctx, "Fetched weekly trends", "ticker", ticker, "year", year, "weeks", len(inYear))
	return inYear, nil
}

// exploreResponse mirrors the widgets envelope of the explore endpoint.
type exploreResponse struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

func (c *Client) exploreTimeseries(ctx context.Context, terms []string, timeframe string) (string, json.RawMessage, error) {
	type comparisonItem struct {
		Keyword string `json:"keyword"`
		Geo     string `json:"geo"`
		Time    string `json:"time"`
	}
	items := make([]comparisonItem, 0, len(terms))
	for _, term := range terms {
		items = append(items, comparisonItem{Keyword: term, Geo: c.geo, Time: timeframe})
	}
	reqPayload, err := json.Marshal(map[string]any{
		"comparisonItem": items,
		"category":       0,
		"property":       "",
	})
	if err != nil {
		return "", nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}

	q := url.Values{}
	q.Set("hl", "en-US")
	q.Set("tz", "0")
	q.Set("req", string(reqPayload))

	resp, err := c.api.GETWithRetry(ctx, exploreURL+"?"+q.Encode(), c.retry, api.TrendsHeaders())
	if err != nil {
		return "", nil, err
	}

	var parsed exploreResponse
	if err := json.Unmarshal(stripJSONPrefix(resp.Body), &parsed); err != nil {
		return "", nil, fmt.Errorf("unexpected explore payload: %w", err)
	}

	for _, w := range parsed.Widgets {
		if w.ID == "TIMESERIES" {
			return w.Token, w.Request, nil
		}
	}
	return "", nil, fmt.Errorf("no TIMESERIES widget in explore response")
}

// multilineResponse mirrors the timeline envelope of the widgetdata endpoint.
type multilineResponse struct {
	Default struct {
		TimelineData []struct {
			Time      string    `json:"time"`
			Value     []float64 `json:"value"`
			IsPartial bool      `json:"isPartial"`
		} `json:"timelineData"`
	} `json:"default"`
}

func (c *Client) fetchMultiline(ctx context.Context, token string, req json.RawMessage, numTerms int) ([][]WeeklyObservation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("hl", "en-US")
	q.Set("tz", "0")
	q.Set("token", token)
	q.Set("req", string(req))

	resp, err := c.api.GETWithRetry(ctx, multilineURL+"?"+q.Encode(), c.retry, api.TrendsHeaders())
	if err != nil {
		return nil, err
	}

	var parsed multilineResponse
	if err := json.Unmarshal(stripJSONPrefix(resp.Body), &parsed); err != nil {
		return nil, fmt.Errorf("unexpected multiline payload: %w", err)
	}

	perTerm := make([][]WeeklyObservation, numTerms)
	for _, point := range parsed.Default.TimelineData {
		secs, err := strconv.ParseInt(point.Time, 10, 64)
		if err != nil {
			// Malformed row: drop silently, keep the rest of the series.
			continue
		}
		weekStart := time.Unix(secs, 0).UTC().Truncate(24 * time.Hour)
		for i := 0; i < numTerms && i < len(point.Value); i++ {
			perTerm[i] = append(perTerm[i], WeeklyObservation{
				WeekStart: weekStart,
				Value:     point.Value[i],
				Partial:   point.IsPartial,
			})
		}
	}
	return perTerm, nil
}

// stripJSONPrefix removes the anti-XSSI prefix (")]}'," and variants) Google
// prepends to its JSON APIs.
func stripJSONPrefix(body []byte) []byte {
	s := string(body)
	if idx := strings.IndexAny(s, "{["); idx > 0 {
		return []byte(s[idx:])
	}
	return body
}
