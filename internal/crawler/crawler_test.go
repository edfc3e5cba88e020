package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
)

func testCrawlerConfig(baseURL string) config.CrawlerConfig {
	return config.CrawlerConfig{
		BaseURL:           baseURL,
		Interval:          "1d",
		RequestsPerSecond: 200,
		Burst:             20,
		Timeout:           2 * time.Second,
		MaxElapsedTime:    3 * time.Second,
		Concurrency:       2,
		UserAgent:         "pipeline-test",
	}
}

func fp(v float64) *float64 { return &v }

func chartJSON(t *testing.T, days []time.Time, quote chartQuote, adj []*float64) []byte {
	t.Helper()
	var result chartResult
	for _, d := range days {
		result.Timestamp = append(result.Timestamp, d.Unix())
	}
	result.Indicators.Quote = []chartQuote{quote}
	if adj != nil {
		result.Indicators.AdjClose = []chartAdjClose{{AdjClose: adj}}
	}

	var payload chartResponse
	payload.Chart.Result = []chartResult{result}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchBars(t *testing.T) {
	days := []time.Time{utcDay(2024, 1, 1), utcDay(2024, 1, 2), utcDay(2024, 1, 3)}
	quote := chartQuote{
		Open:   []*float64{fp(100), nil, fp(102)},
		High:   []*float64{fp(110), fp(111), fp(112)},
		Low:    []*float64{fp(90), fp(91), fp(92)},
		Close:  []*float64{fp(105), fp(106), fp(107)},
		Volume: []*float64{fp(1000), fp(1100), nil},
	}
	adj := []*float64{fp(104.5), fp(105.5), fp(106.5)}

	var gotRequest *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequest = r.Clone(context.Background())
		w.Write(chartJSON(t, days, quote, adj))
	}))
	defer server.Close()

	client := NewClient(testCrawlerConfig(server.URL))
	bars, err := client.FetchBars(context.Background(), "BTC-USD", utcDay(2024, 1, 1), utcDay(2024, 1, 3))
	require.NoError(t, err)

	require.NotNil(t, gotRequest)
	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotRequest.URL.Path)
	query := gotRequest.URL.Query()
	assert.Equal(t, "1d", query.Get("interval"))
	assert.Equal(t, "1704067200", query.Get("period1"))
	// period2 covers the full final day.
	assert.Equal(t, "1704326400", query.Get("period2"))
	assert.Equal(t, "pipeline-test", gotRequest.Header.Get("User-Agent"))

	require.Len(t, bars, 2, "the null-open day must be dropped")
	assert.Equal(t, utcDay(2024, 1, 1), bars[0].Date)
	assert.Equal(t, 104.5, bars[0].AdjClose)
	assert.Equal(t, utcDay(2024, 1, 3), bars[1].Date)
	assert.Equal(t, 0.0, bars[1].Volume, "null volume defaults to zero")
}

func TestFetchBarsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	client := NewClient(testCrawlerConfig(server.URL))
	_, err := client.FetchBars(context.Background(), "NOPE-USD", utcDay(2024, 1, 1), utcDay(2024, 1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestFetchBarsRetriesServerErrors(t *testing.T) {
	days := []time.Time{utcDay(2024, 1, 1)}
	quote := chartQuote{
		Open:   []*float64{fp(100)},
		High:   []*float64{fp(110)},
		Low:    []*float64{fp(90)},
		Close:  []*float64{fp(105)},
		Volume: []*float64{fp(1000)},
	}

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(chartJSON(t, days, quote, nil))
	}))
	defer server.Close()

	client := NewClient(testCrawlerConfig(server.URL))
	bars, err := client.FetchBars(context.Background(), "BTC-USD", utcDay(2024, 1, 1), utcDay(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestFetchBarsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testCrawlerConfig(server.URL))
	_, err := client.FetchBars(context.Background(), "BTC-USD", utcDay(2024, 1, 1), utcDay(2024, 1, 1))
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestCrawlerRun(t *testing.T) {
	days := []time.Time{utcDay(2024, 1, 1), utcDay(2024, 1, 2)}
	quote := chartQuote{
		Open:   []*float64{fp(100), fp(101)},
		High:   []*float64{fp(110), fp(111)},
		Low:    []*float64{fp(90), fp(91)},
		Close:  []*float64{fp(105), fp(106)},
		Volume: []*float64{fp(1000), fp(1100)},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chartJSON(t, days, quote, nil))
	}))
	defer server.Close()

	outputDir := t.TempDir()
	crawler := New(testCrawlerConfig(server.URL))

	results, err := crawler.Run(context.Background(),
		[]string{"ETH-USD", "BTC-USD"}, utcDay(2024, 1, 1), utcDay(2024, 1, 2), outputDir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "BTC-USD", results[0].Symbol, "results must be sorted by symbol")
	assert.Equal(t, 2, results[0].Rows)

	bars, err := dataset.ReadBarsCSV(results[1].Path, "ETH-USD")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, 106.0, bars[1].Close)
}

func TestCrawlerRunJoinsFailures(t *testing.T) {
	days := []time.Time{utcDay(2024, 1, 1)}
	quote := chartQuote{
		Open:   []*float64{fp(100)},
		High:   []*float64{fp(110)},
		Low:    []*float64{fp(90)},
		Close:  []*float64{fp(105)},
		Volume: []*float64{fp(1000)},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/NOPE-USD" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(chartJSON(t, days, quote, nil))
	}))
	defer server.Close()

	outputDir := t.TempDir()
	crawler := New(testCrawlerConfig(server.URL))
	_, err := crawler.Run(context.Background(),
		[]string{"BTC-USD", "NOPE-USD"}, utcDay(2024, 1, 1), utcDay(2024, 1, 1), outputDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE-USD")

	// The healthy symbol must still have been written.
	bars, readErr := dataset.ReadBarsCSV(filepath.Join(outputDir, "BTC-USD.csv"), "BTC-USD")
	require.NoError(t, readErr)
	assert.Len(t, bars, 1)
}

func TestCrawlerRunNoSymbols(t *testing.T) {
	crawler := New(testCrawlerConfig("http://localhost:0"))
	_, err := crawler.Run(context.Background(), nil, utcDay(2024, 1, 1), utcDay(2024, 1, 2), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no symbols")
}
