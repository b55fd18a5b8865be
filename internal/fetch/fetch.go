// Package fetch executes outbound requests with timeout, exponential-backoff
// retry, per-origin rate limiting, and a per-origin circuit breaker.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/resilience"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 10 << 20

// defaultOriginRate is applied to origins without an explicit limiter.
const defaultOriginRate = rate.Limit(10)

// Request identifies one outbound fetch. Origin defaults to the URL host
// when empty.
type Request struct {
	URL    string
	Origin string
}

// Response is a completed fetch with the attempt count recorded for
// observability.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Attempts   int
}

// Result pairs a response or error with its input request, index-aligned
// for batch fetches.
type Result struct {
	Request  Request
	Response *Response
	Err      error
}

// StatusError is a non-retryable HTTP error status (4xx other than 429).
// It is a legitimate application-level outcome: it surfaces to the caller
// immediately and never trips the origin's circuit breaker.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// Client is the circuit-protected fetch layer. Safe for concurrent use;
// all breaker and limiter state is in-memory and origin-scoped.
type Client struct {
	client   *http.Client
	cfg      config.FetchConfig
	retryCfg resilience.RetryConfig
	breakers *resilience.OriginBreakers

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a fetch client from config.
func NewClient(cfg config.FetchConfig) *Client {
	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "curator/1.0"
	}

	retryCfg := resilience.FromRetryConfig(
		cfg.MaxRetries, cfg.InitialDelayMs, cfg.MaxDelayMs,
		cfg.BackoffMultiplier, cfg.JitterFraction,
	)

	breakerCfg := resilience.FromCircuitConfig(cfg.CircuitFailureThreshold, cfg.CircuitCooldownMs)
	// Only transient failures count toward opening a circuit; a non-retryable
	// 4xx is an application-level outcome and resets the failure count.
	breakerCfg.ShouldTrip = resilience.IsTransient

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		cfg:      cfg,
		retryCfg: retryCfg,
		breakers: resilience.NewOriginBreakers(breakerCfg),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch executes one request with retry and circuit protection. Retries
// happen only on transient failures (network errors, timeouts, 5xx, 429);
// other 4xx statuses return a *StatusError immediately. While the origin's
// circuit is open the call fails fast with resilience.ErrCircuitOpen and no
// network I/O happens.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	origin := req.Origin
	if origin == "" {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch: parse url %q", req.URL)
		}
		origin = u.Host
	}

	cb := c.breakers.Get(origin)

	retryCfg := c.retryCfg
	retryCfg.OnRetry = resilience.RetryLogger(origin, "fetch")

	attempts := 0
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Response, error) {
		// The breaker wraps each individual attempt so every transient
		// failure counts toward the origin's failure threshold.
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Response, error) {
			attempts++
			return c.doRequest(ctx, origin, req.URL)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: %s", req.URL)
	}

	resp.Attempts = attempts
	return resp, nil
}

// FetchBatch runs all requests concurrently, bounded by the configured
// worker limit, and returns one result per input index. A single request's
// exhaustion of retries never aborts the batch.
func (c *Client) FetchBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	limit := c.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := c.Fetch(ctx, req)
			results[i] = Result{Request: req, Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BreakerStates returns a snapshot of every origin's circuit state.
func (c *Client) BreakerStates() map[string]resilience.CircuitState {
	return c.breakers.States()
}

// doRequest performs a single HTTP attempt, classifying the outcome into
// transient errors, non-retryable status errors, or a response.
func (c *Client) doRequest(ctx context.Context, origin, rawURL string) (*Response, error) {
	if err := c.limiterFor(origin).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: create request for %s", rawURL)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetch: read body from %s", rawURL), httpResp.StatusCode)
	}

	if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
		zap.L().Warn("fetch: transient http status",
			zap.String("origin", origin),
			zap.String("url", rawURL),
			zap.Int("status", httpResp.StatusCode),
		)
		return nil, resilience.NewTransientError(
			eris.Errorf("http %d from %s", httpResp.StatusCode, rawURL),
			httpResp.StatusCode,
		)
	}

	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, URL: rawURL}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Header:     httpResp.Header,
	}, nil
}

// limiterFor returns the origin's rate limiter, creating one lazily.
func (c *Client) limiterFor(origin string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[origin]
	if !ok {
		lim = rate.NewLimiter(defaultOriginRate, int(defaultOriginRate))
		c.limiters[origin] = lim
	}
	return lim
}
