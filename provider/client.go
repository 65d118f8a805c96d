package provider

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	defaultTimeout = 10 * time.Second
	defaultBackoff = time.Second
)

var requestBuckets = []float64{0.05, 0.1, 0.5, 1.0, 5.0, 10.0}

// HTTPClient issues GET queries against one upstream endpoint with bounded,
// linearly backed off retries behind a Breaker.
type HTTPClient struct {
	logger   types.Logger
	metrics  types.MetricsManager
	upstream string
	http     *fasthttp.Client
	baseURL  string
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	breaker  *Breaker
	closing  context.Context
	cancel   context.CancelFunc
	closed   atomic.Bool
}

func NewHTTPClient(ctx context.Context, logger types.Logger, metrics types.MetricsManager, upstream string, config *types.ProviderConfig) *HTTPClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	closing, cancel := context.WithCancel(ctx)

	return &HTTPClient{
		logger:   logger,
		metrics:  metrics,
		upstream: upstream,
		http:     &fasthttp.Client{Name: "sai-stockwatch", ReadTimeout: timeout, WriteTimeout: timeout},
		baseURL:  baseURL,
		timeout:  timeout,
		retries:  config.Retries,
		backoff:  defaultBackoff,
		breaker:  NewBreaker(config.CircuitBreaker, logger, upstream),
		closing:  closing,
		cancel:   cancel,
	}
}

// Get sends params as the query string and returns a copy of the body of
// the first 2xx response.
func (c *HTTPClient) Get(ctx context.Context, params map[string]string) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrProviderNotRunning
	}

	function := params["function"]
	requestID := uuid.NewString()
	start := time.Now()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	c.prepare(req, requestID, params)

	body, err := c.retry(ctx, req, requestID, function)
	c.observe(function, start, err)

	return body, err
}

func (c *HTTPClient) BreakerState() string {
	return c.breaker.State()
}

func (c *HTTPClient) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.cancel()
	c.http.CloseIdleConnections()
	c.logger.Debug("HTTP client closed", zap.String("upstream", c.upstream))
}

// prepare writes params in key order so identical queries produce identical URLs.
func (c *HTTPClient) prepare(req *fasthttp.Request, requestID string, params map[string]string) {
	req.SetRequestURI(c.baseURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Request-Id", requestID)

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := req.URI().QueryArgs()
	for _, key := range keys {
		query.Set(key, params[key])
	}
}

func (c *HTTPClient) retry(ctx context.Context, req *fasthttp.Request, requestID, function string) ([]byte, error) {
	log := []zap.Field{zap.String("request_id", requestID), zap.String("function", function)}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			c.logger.Debug("Retrying upstream request", append(log, zap.Duration("backoff", wait), zap.Error(lastErr))...)

			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if err := c.interrupted(ctx); err != nil {
			return nil, err
		}

		if !c.breaker.Allow() {
			return nil, types.Errorf(types.ErrCircuitBreakerOpen, "upstream %s", c.upstream)
		}

		body, status, err := c.attempt(ctx, req)
		if err == nil && status >= 200 && status < 300 {
			c.breaker.Success()
			c.logger.Debug("Upstream request completed", append(log, zap.Int("attempt", attempt+1))...)
			return body, nil
		}

		trips, again := outcome(status, err)
		if trips {
			c.breaker.Failure()
		}

		lastErr = err
		if lastErr == nil {
			lastErr = types.NewErrorf("HTTP %d", status)
		}

		if !again {
			c.logger.Debug("Not retrying client error", append(log, zap.Int("status_code", status))...)
			break
		}
	}

	c.logger.Warn("Upstream request failed", append(log, zap.Error(lastErr))...)
	return nil, types.Errorf(types.ErrProviderRequestFailed, "%s: %v", function, lastErr)
}

// attempt bounds one round trip by the client timeout or the caller's
// deadline, whichever comes first.
func (c *HTTPClient) attempt(ctx context.Context, req *fasthttp.Request) ([]byte, int, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, 0, err
	}

	return append([]byte(nil), resp.Body()...), resp.StatusCode(), nil
}

func (c *HTTPClient) sleep(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return types.WrapError(ctx.Err(), "upstream request cancelled")
	case <-c.closing.Done():
		return types.ErrProviderNotRunning
	}
}

func (c *HTTPClient) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return types.WrapError(err, "upstream request cancelled")
	}
	if c.closing.Err() != nil {
		return types.ErrProviderNotRunning
	}
	return nil
}

func (c *HTTPClient) observe(function string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
	}

	c.metrics.Counter("provider_requests_total", map[string]string{"function": function, "result": result}).Inc()
	c.metrics.Histogram("provider_request_duration_seconds", requestBuckets, map[string]string{"function": function}).ObserveDuration(start)
}
