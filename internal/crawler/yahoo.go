package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Client fetches daily OHLCV history from the Yahoo Finance chart API.
type Client struct {
	baseURL   string
	interval  string
	userAgent string
	http      *httpClient
}

// NewClient creates a chart API client from the crawler configuration.
func NewClient(cfg config.CrawlerConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		interval:  cfg.Interval,
		userAgent: cfg.UserAgent,
		http:      newHTTPClient(cfg.Timeout, cfg.RequestsPerSecond, cfg.Burst, cfg.MaxElapsedTime),
	}
}

// chartResponse mirrors the v8 chart API payload. Quote arrays carry
// null entries on halted days, hence the pointer elements.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote    []chartQuote    `json:"quote"`
		AdjClose []chartAdjClose `json:"adjclose"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// FetchBars downloads daily bars for one symbol over [start, end]. The
// end date is inclusive. Bars come back sorted by date with duplicate
// days collapsed.
func (c *Client) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", c.interval)
	params.Set("includeAdjustedClose", "true")
	params.Set("events", "div,splits")

	requestURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	slog.Debug("fetching bars", "symbol", symbol, "url", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", symbol, err)
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response for %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s (%s)",
			symbol, payload.Chart.Error.Description, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart API returned no result for %s", symbol)
	}

	bars, err := barsFromResult(payload.Chart.Result[0], symbol)
	if err != nil {
		return nil, fmt.Errorf("decoding bars for %s: %w", symbol, err)
	}

	domain.SortBarsByDate(bars)
	bars = domain.DedupeBars(bars)
	slog.Info("fetched bars", "symbol", symbol, "rows", len(bars),
		"from", bars[0].Date.Format(config.DateLayout),
		"to", bars[len(bars)-1].Date.Format(config.DateLayout))
	return bars, nil
}

func barsFromResult(result chartResult, symbol string) ([]domain.Bar, error) {
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("result has no quote data")
	}
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]domain.Bar, 0, len(result.Timestamp))
	skipped := 0
	for i, ts := range result.Timestamp {
		open := at(quote.Open, i)
		high := at(quote.High, i)
		low := at(quote.Low, i)
		closePx := at(quote.Close, i)
		if open == nil || high == nil || low == nil || closePx == nil {
			skipped++
			continue
		}

		bar := domain.Bar{
			Symbol:   symbol,
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:     *open,
			High:     *high,
			Low:      *low,
			Close:    *closePx,
			AdjClose: *closePx,
		}
		if adj := at(adjClose, i); adj != nil {
			bar.AdjClose = *adj
		}
		if vol := at(quote.Volume, i); vol != nil {
			bar.Volume = *vol
		}

		if err := bar.Validate(); err != nil {
			slog.Warn("skipping invalid bar", "symbol", symbol,
				"date", bar.Date.Format(config.DateLayout), "error", err)
			skipped++
			continue
		}
		bars = append(bars, bar)
	}

	if skipped > 0 {
		slog.Warn("skipped null or invalid quote entries", "symbol", symbol, "skipped", skipped)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("all %d quote entries were null or invalid", len(result.Timestamp))
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
