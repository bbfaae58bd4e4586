// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limited, retrying HTTP client used for
// every call to the literature provider.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/metrics"
)

// Backoff parameters. Tests override these to avoid real sleeps.
var (
	InitialBackoff = 500 * time.Millisecond
	MaxBackoff     = 4 * time.Second
)

// MaxAttempts bounds the attempts per request. Rate-limit and server-error
// retries draw from the same budget.
const MaxAttempts = 3

// ErrRetriesExhausted is returned when every attempt ended in 429 or 5xx.
var ErrRetriesExhausted = errors.New("retries exhausted")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// IsRateLimited reports whether the response was HTTP 429.
func (e *StatusError) IsRateLimited() bool { return e.Code == http.StatusTooManyRequests }

// IsServerError reports whether the response was HTTP 5xx.
func (e *StatusError) IsServerError() bool { return e.Code >= 500 && e.Code < 600 }

// Fetcher executes provider requests. It waits on the rate limiter before
// each attempt and backs off exponentially on 429 and 5xx. It is safe for
// concurrent use.
type Fetcher struct {
	client  *http.Client
	limiter *RateLimiter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRateLimiter replaces the default unlimited limiter.
func WithRateLimiter(l *RateLimiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithMetrics records attempts and retries in m.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher wraps client. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:  client,
		limiter: Unlimited(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Do executes req and returns a 2xx response whose body the caller must
// close. On HTTP 429 it sleeps, doubles the delay up to MaxBackoff, and
// retries. On 5xx it does the same only while attempts remain. Any other
// status yields a *StatusError; exhausting MaxAttempts yields an error
// wrapping both ErrRetriesExhausted and the last *StatusError. Transport
// errors are returned immediately. Sleeps end early with ctx.Err() when ctx
// is cancelled.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	defer func() { f.metrics.ObserveFetchSeconds(time.Since(start).Seconds()) }()

	delay := InitialBackoff
	var lastStatus *StatusError

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			f.metrics.ObserveAttempt("network_error")
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			f.metrics.ObserveAttempt("ok")
			return resp, nil
		}

		drain(resp)
		status := &StatusError{Code: resp.StatusCode, URL: redactedURL(req)}

		var reason string
		switch {
		case status.IsRateLimited():
			reason = "rate_limited"
		case status.IsServerError():
			reason = "server_error"
		default:
			f.metrics.ObserveAttempt("client_error")
			return nil, status
		}
		f.metrics.ObserveAttempt(reason)
		lastStatus = status

		if attempt == MaxAttempts {
			break
		}

		f.metrics.ObserveRetry(reason)
		f.logger.Debug().
			Int("status", status.Code).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("provider request throttled, backing off")

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, MaxBackoff)
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, MaxAttempts, lastStatus)
}

// Get issues a GET for rawURL with the given headers through Do.
func (f *Fetcher) Get(ctx context.Context, rawURL string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return f.Do(ctx, req)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain discards and closes the body so the connection can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// redactedURL returns the request URL without its query string, which may
// carry user search terms.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
