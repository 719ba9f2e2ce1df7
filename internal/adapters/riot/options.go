package riot

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/zerox80/riftstats/pkg/logger"
)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit sets the outbound quota to requests per window.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(c *Client) {
		if requests > 0 && window > 0 {
			c.limiter = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
		}
	}
}

// WithLimiter supplies a prebuilt token bucket.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithMaxAttempts bounds the retry loop, counting the first try.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseBackoff sets the first retry delay; later retries double it.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseBackoff = d
		}
	}
}

// WithSleeper replaces the backoff sleep, used by tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
