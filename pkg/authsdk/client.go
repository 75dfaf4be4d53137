package authsdk

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// DefaultTimeout bounds each request attempt. A retried request and the
// refresh before it each get a fresh budget.
const DefaultTimeout = 15 * time.Second

// Client is a client for the register API. All requests go through the
// same Transport, which is installed once by NewClient and never removed.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration

	mu        sync.RWMutex
	headers   http.Header
	refresher Refresher
}

type clientConfig struct {
	timeout   time.Duration
	base      http.RoundTripper
	logger    *slog.Logger
	metrics   *Metrics
	rateLimit *httpx.RateLimitConfig
}

type ClientOption func(*clientConfig)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithBaseTransport sets the RoundTripper that actually sends requests.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) { c.base = rt }
}

// WithLogger sets the logger used for request and session logs.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

// WithMetrics records client and session metrics into m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *clientConfig) { c.metrics = m }
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(cfg httpx.RateLimitConfig) ClientOption {
	return func(c *clientConfig) { c.rateLimit = &cfg }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = NewMetrics(nil)
	}

	var base http.RoundTripper = slogx.NewTransport(cfg.base, cfg.logger)
	if cfg.rateLimit != nil {
		base = httpx.NewRateLimitTransport(base, *cfg.rateLimit)
	}

	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  cfg.logger,
		metrics: cfg.metrics,
		timeout: cfg.timeout,
		headers: http.Header{},
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("Content-Type", "application/json")

	c.HTTPClient = &http.Client{
		Transport: &Transport{Base: base, client: c},
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Metrics returns the metrics the client records into.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// SetHeader sets a default header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// DelHeader removes a default header.
func (c *Client) DelHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(key)
}

// Header returns a default header value, or "".
func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(key)
}

// SetAccessToken sets the default Authorization header. An empty token
// removes it entirely.
func (c *Client) SetAccessToken(token string) {
	if token == "" {
		c.DelHeader(httpx.AuthorizationHeader)
		return
	}
	c.SetHeader(httpx.AuthorizationHeader, httpx.Bearer(token))
}

func (c *Client) authorization() string {
	return c.Header(httpx.AuthorizationHeader)
}

// SetRefresher installs the component the Transport asks for a fresh
// access token after a 401. NewController installs itself.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) currentRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}
