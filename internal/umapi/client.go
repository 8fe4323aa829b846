package umapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"aum/internal/cache"
	"aum/internal/config"
	"aum/internal/errors"
	"aum/internal/limiter"
	"aum/internal/retry"
)

// Client orchestrates User Management API calls: cache lookup first, then a
// concurrency-limited, retried HTTP request whose result is cached. The
// cache, limiter, executor, and metrics are owned by the client instance;
// there is no process-global state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	orgID      string
	clientID   string
	auth       *tokenSource
	cache      *cache.Cache
	limiter    *limiter.Limiter
	executor   *retry.Executor
	defaultTTL time.Duration
	pageSize   int

	mu      sync.Mutex
	metrics Metrics
}

// Metrics counts what the orchestrator has done since construction
type Metrics struct {
	CacheHits   uint64 `json:"cache_hits"`
	APICalls    uint64 `json:"api_calls"`
	APIFailures uint64 `json:"api_failures"`
}

// Request describes one logical API call for batch dispatch
type Request struct {
	Endpoint string
	Method   string
	Body     any
	TTL      *time.Duration
}

// Outcome is the per-item result of a batch; exactly one of Value and Err
// is meaningful. Index matches the input position regardless of the order
// in which calls completed.
type Outcome struct {
	Index int
	Value json.RawMessage
	Err   error
}

// NewClient builds a client from configuration. Call Close when done to
// release transport resources.
func NewClient(cfg *config.Config) *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		orgID:      cfg.OrgID,
		clientID:   cfg.ClientID,
		auth:       newTokenSource(httpClient, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret),
		cache:      cache.New(cfg.CacheCapacity, cfg.DefaultTTL()),
		limiter:    limiter.New(cfg.MaxConcurrent),
		executor: retry.NewExecutor(&retry.Config{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  cfg.BackoffBase,
		}),
		defaultTTL: cfg.DefaultTTL(),
		pageSize:   config.DefaultPageSize,
	}
}

// Close releases idle transport connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Call performs one logical API request. Cache hits return immediately
// without touching the network or the concurrency limiter. Misses acquire
// a limiter slot, run the HTTP request through the retry executor, and
// cache the successful result under the given TTL (nil means the default).
func (c *Client) Call(ctx context.Context, endpoint, method string, body any, ttl *time.Duration) (json.RawMessage, error) {
	key := cache.RequestKey(endpoint, method, body)

	if cached, err := c.cache.Get(key); err == nil {
		c.mu.Lock()
		c.metrics.CacheHits++
		c.mu.Unlock()
		return cached.(json.RawMessage), nil
	}

	operation := fmt.Sprintf("%s %s", method, endpoint)

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, &errors.DeadlineExceededError{Operation: operation, Err: err}
	}
	defer c.limiter.Release()

	var result json.RawMessage
	err := c.executor.Execute(ctx, retry.WorkUnit{
		Name: operation,
		Action: func(ctx context.Context) error {
			payload, reqErr := c.doRequest(ctx, endpoint, method, body)
			if reqErr != nil {
				return reqErr
			}
			result = payload
			return nil
		},
	})

	if err != nil {
		// A fired deadline wins over any other classification: the
		// attempts were cut short, not used up.
		if ctx.Err() != nil {
			return nil, &errors.DeadlineExceededError{Operation: operation, Err: ctx.Err()}
		}

		var exhausted *errors.ExhaustedRetriesError
		if stderrors.As(err, &exhausted) {
			c.mu.Lock()
			c.metrics.APIFailures++
			c.mu.Unlock()
		}
		return nil, err
	}

	c.cache.Set(key, result, ttl)
	c.mu.Lock()
	c.metrics.APICalls++
	c.mu.Unlock()

	return result, nil
}

// CallBatch dispatches the requests concurrently, each independently gated
// by the limiter, and returns outcomes in input order. One request's
// failure never cancels or blocks the others.
func (c *Client) CallBatch(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			value, err := c.Call(ctx, req.Endpoint, req.Method, req.Body, req.TTL)
			outcomes[i] = Outcome{Index: i, Value: value, Err: err}
		}(i, req)
	}
	wg.Wait()

	return outcomes
}

// Metrics returns a snapshot of the orchestration counters
func (c *Client) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// CacheStats exposes the underlying cache counters
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// doRequest performs a single HTTP attempt and classifies the response
func (c *Client) doRequest(ctx context.Context, endpoint, method string, body any) (json.RawMessage, error) {
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, errors.WrapValidationError(marshalErr, endpoint)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, errors.WrapValidationError(err, endpoint)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Api-Key", c.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapNetworkError(err, method, endpoint)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapNetworkError(err, method, endpoint)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return json.RawMessage(payload), nil

	case http.StatusTooManyRequests:
		if retryAfter := parseRetryAfter(resp.Header.Get("Retry-After")); retryAfter > 0 {
			return nil, errors.RateLimited(retryAfter, endpoint)
		}
		return nil, errors.WrapHTTPError(resp.StatusCode, string(payload), method, endpoint)

	case http.StatusUnauthorized:
		// The token may simply have been revoked; drop it so the next
		// attempt re-authenticates.
		c.auth.Invalidate()
		return nil, errors.WrapHTTPError(resp.StatusCode, string(payload), method, endpoint)

	default:
		return nil, errors.WrapHTTPError(resp.StatusCode, string(payload), method, endpoint)
	}
}

// parseRetryAfter reads a Retry-After header given in seconds
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
