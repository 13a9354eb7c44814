package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Client is a rate limited HTTP client that retries transient failures.
// It satisfies the HTTPClient interface of the Telegram bot API.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	retry      time.Duration
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  float64
	MaxRetryTimeout time.Duration
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}

	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		retry:   opts.MaxRetryTimeout,
	}
}

// Do performs an HTTP request with rate limiting and retries.
// Only network errors, 429 and 5xx responses are retried; any other response
// is returned to the caller untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var resp *http.Response
	attempt := 0
	operation := func() error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		if attempt > 0 && req.Body != nil {
			if req.GetBody == nil {
				return backoff.Permanent(fmt.Errorf("request body cannot be replayed"))
			}
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		attempt++

		var err error
		resp, err = c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		if retryable(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.retry

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, err
	}

	return resp, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// HTTPStatusError represents a response that kept failing after retries
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return "unexpected status code: " + http.StatusText(e.StatusCode)
}
