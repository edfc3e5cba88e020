package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// httpClient wraps the standard client with rate limiting and retries.
// The market data host throttles aggressively, so every request first
// waits for a limiter token and transient failures back off
// exponentially.
type httpClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
}

func newHTTPClient(timeout time.Duration, requestsPerSecond float64, burst int, maxElapsed time.Duration) *httpClient {
	return &httpClient{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		maxElapsed: maxElapsed,
	}
}

// do performs the request with rate limiting and retries. Server-side
// throttling and 5xx responses are retried until maxElapsed runs out,
// other non-200 statuses fail immediately.
func (c *httpClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		resp, err = c.client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode}
			if !retryableStatus(resp.StatusCode) {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}
