// Package httpclient provides an HTTP client wrapper tailored for rate-limited
// APIs: it retries on 429 and transient 5xx responses with exponential backoff
// plus jitter, honoring the Retry-After header when the server supplies one.
package httpclient

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/boda2004/game-catalog/internal/constants"
)

// RetryOptions controls the retry policy of FetchWithRetry.
type RetryOptions struct {
	MaxRetries   int           // retries after the initial attempt
	InitialDelay time.Duration // base backoff delay
	MaxDelay     time.Duration // cap for the backoff delay
}

// DefaultRetryOptions returns the policy used when the caller passes nil.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:   constants.DefaultMaxRetries,
		InitialDelay: constants.DefaultInitialDelay,
		MaxDelay:     constants.DefaultMaxDelay,
	}
}

// Client wraps an http.Client with retry handling for rate-limited APIs.
type Client struct {
	httpClient *http.Client
	opts       RetryOptions
}

// NewClient creates a retrying HTTP client. A nil httpClient gets a sane
// default transport; a nil opts gets DefaultRetryOptions.
func NewClient(httpClient *http.Client, opts *RetryOptions) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	o := DefaultRetryOptions()
	if opts != nil {
		o = *opts
	}
	return &Client{httpClient: httpClient, opts: o}
}

// retryableStatus reports whether a response status warrants a retry.
// Other error statuses are returned to the caller for inspection.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchWithRetry issues a GET request to url, retrying on 429/502/503/504 and
// on network failures. Non-retryable statuses are returned as-is. After
// MaxRetries+1 total attempts the last response (or network error) is handed
// back to the caller.
func (c *Client) FetchWithRetry(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// Do executes a request built by newReq under the retry policy. A factory is
// taken instead of a single *http.Request so each attempt gets a fresh request.
func (c *Client) Do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure: retry with backoff, no Retry-After available.
			if attempt >= c.opts.MaxRetries {
				return nil, err
			}
			if serr := sleepCtx(ctx, c.backoffDelay(attempt)); serr != nil {
				return nil, serr
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt >= c.opts.MaxRetries {
			return resp, nil
		}

		delay, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		if !ok {
			delay = c.backoffDelay(attempt)
		}
		_ = resp.Body.Close()

		if serr := sleepCtx(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// backoffDelay computes min(MaxDelay, InitialDelay*2^attempt) plus jitter in
// [0, 250ms).
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.opts.InitialDelay
	for i := 0; i < attempt; i++ {
		base *= 2
		if base >= c.opts.MaxDelay {
			base = c.opts.MaxDelay
			break
		}
	}
	if base > c.opts.MaxDelay {
		base = c.opts.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(constants.MaxRetryJitter)))
	return base + jitter
}

// parseRetryAfter interprets a Retry-After header value: a pure integer is
// seconds, otherwise an HTTP-date. Returns false when absent or unparseable.
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		delta := time.Until(at)
		if delta < 0 {
			delta = 0
		}
		return delta, true
	}
	return 0, false
}

// sleepCtx waits for d without blocking past context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
