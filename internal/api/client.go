package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rickgao/top500/internal/backoff"
)

// Client provides access to an upstream REST API.
type Client struct {
	baseURL    string
	apiKey     string
	authParam  string
	httpClient *http.Client
	logger     zerolog.Logger

	retry   *backoff.Executor
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
// authParam is the query parameter carrying apiKey ("apiKey", "token", ...).
func NewClient(baseURL, apiKey, authParam string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		authParam: authParam,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zerolog.Nop(),
		retry:  backoff.New(backoff.DefaultPolicy()),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetryPolicy replaces the backoff executor with one built from policy.
func WithRetryPolicy(policy backoff.Policy) ClientOption {
	return func(c *Client) {
		c.retry = backoff.New(policy)
	}
}

// WithExecutor sets a preconfigured backoff executor.
func WithExecutor(e *backoff.Executor) ClientOption {
	return func(c *Client) {
		c.retry = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests across all goroutines sharing the client.
// rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32        // Trip after this many transient failures in a row
	OpenTimeout         time.Duration // Time spent open before probing again
	HalfOpenRequests    uint32        // Probes allowed while half-open
}

// WithBreaker wraps every request in a circuit breaker. Only transient
// failures (429, 5xx, transport errors) count against it; a 404 for one
// symbol says nothing about upstream health.
func WithBreaker(cfg BreakerConfig) ClientOption {
	return func(c *Client) {
		if cfg.ConsecutiveFailures == 0 {
			c.breaker = nil
			return
		}
		threshold := cfg.ConsecutiveFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || backoff.Classify(err) == backoff.Terminal
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("upstream circuit breaker changed state")
			},
		})
	}
}

// BreakerState reports the breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}
