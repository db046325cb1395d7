package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/metrics"
	"golang.org/x/time/rate"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // max consecutive failures before circuit break
	UserAgent         string
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      500 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         5.0,
		CircuitBreakerMax: 10,
		UserAgent:         "Mozilla/5.0 (compatible; stock-screener/1.0)",
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a
// circuit breaker. Safe for concurrent use.
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	userAgent         string
	circuitBreakerMax int

	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	lastError         error

	logger *logrus.Entry
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultHTTPClientConfig().RateLimit
	}
	if cfg.CircuitBreakerMax <= 0 {
		cfg.CircuitBreakerMax = DefaultHTTPClientConfig().CircuitBreakerMax
	}
	entry := logger.WithField("component", "http_client")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = nil

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		userAgent:         cfg.UserAgent,
		circuitBreakerMax: cfg.CircuitBreakerMax,
		logger:            entry,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if open, lastErr := c.circuitState(); open {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, lastErr)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(retryReq)
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}
	if resp.StatusCode < 500 {
		c.recordSuccess()
	}
	return resp, nil
}

func (c *RateLimitedHTTPClient) circuitState() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen, c.lastError
}

func (c *RateLimitedHTTPClient) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors++
	c.lastError = err
	if c.consecutiveErrors >= c.circuitBreakerMax && !c.isOpen {
		c.isOpen = true
		metrics.RecordCircuitBreakerTrip()
		c.logger.WithError(err).WithField("consecutive_errors", c.consecutiveErrors).Warn("Circuit breaker opened")
	}
}

func (c *RateLimitedHTTPClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors = 0
	c.isOpen = false
}

// ResetCircuit closes the circuit breaker.
func (c *RateLimitedHTTPClient) ResetCircuit() {
	c.recordSuccess()
}

// IsOpen reports whether the circuit breaker is open.
func (c *RateLimitedHTTPClient) IsOpen() bool {
	open, _ := c.circuitState()
	return open
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Post executes a POST request
func (c *RateLimitedHTTPClient) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Retry on network errors
			return true, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}
