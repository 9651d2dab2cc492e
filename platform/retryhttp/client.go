// Package retryhttp provides a generic outbound HTTP client with bounded
// retries, exponential backoff with jitter, and typed terminal/retryable
// failure results.
// This is part of the platform layer and contains no business logic.
package retryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultTimeout bounds each individual attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// defaultBaseDelay is the first backoff interval.
	defaultBaseDelay = 500 * time.Millisecond
	// defaultMaxDelay caps the backoff interval.
	defaultMaxDelay = 8 * time.Second
)

// Error is the typed failure result of an exhausted or terminal request.
type Error struct {
	// Attempts is the total number of attempts performed, including the first.
	Attempts int
	// LastStatus is the last HTTP status observed, 0 for transport failures.
	LastStatus int
	// Terminal reports whether the failure was non-retryable. False means
	// the retry budget was exhausted on retryable failures.
	Terminal bool
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	kind := "retryable"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("outbound request failed (%s, %d attempts, last status %d): %v", kind, e.Attempts, e.LastStatus, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Result holds the final successful response body and status.
type Result struct {
	Status   int
	Body     []byte
	Attempts int
}

// Doer abstracts *http.Client for testing.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs outbound HTTP requests with retry semantics.
type Client struct {
	http       Doer
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the retry budget after the initial attempt.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the initial backoff interval. Used by tests to keep
// retries fast.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithHTTPDoer replaces the underlying HTTP client.
func WithHTTPDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// New creates a retrying HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// RequestFunc builds a fresh request per attempt. Bodies cannot be reused
// across attempts, so the caller supplies a constructor instead of a request.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do executes the request with bounded retries. Transport errors, 408, 429
// and 5xx responses are retried; any other non-2xx response is terminal.
func (c *Client) Do(ctx context.Context, build RequestFunc) (*Result, error) {
	backoff := retry.WithJitterPercent(20, retry.NewExponential(c.baseDelay))
	backoff = retry.WithCappedDuration(defaultMaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(c.maxRetries), backoff)

	attempts := 0
	var lastStatus int
	var result *Result

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := build(attemptCtx)
		if err != nil {
			return err // malformed request, never retryable
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastStatus = 0
			return retry.RetryableError(err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastStatus = resp.StatusCode
			return retry.RetryableError(err)
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result = &Result{Status: resp.StatusCode, Body: body, Attempts: attempts}
			return nil
		}

		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
		if isRetryableStatus(resp.StatusCode) {
			return retry.RetryableError(statusErr)
		}
		return statusErr
	})

	if err != nil {
		return nil, &Error{
			Attempts:   attempts,
			LastStatus: lastStatus,
			Terminal:   !isRetryableStatus(lastStatus) && lastStatus != 0,
			Err:        err,
		}
	}

	return result, nil
}

// PostJSON marshals the payload and delivers it with retries. Headers are
// applied to every attempt.
func (c *Client) PostJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) (*Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Attempts: 0, Terminal: true, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

// GetJSON performs a GET with retries and unmarshals the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) (*Result, error) {
	result, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil && len(result.Body) > 0 {
		if err := json.Unmarshal(result.Body, out); err != nil {
			return result, &Error{Attempts: result.Attempts, LastStatus: result.Status, Terminal: true, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return result, nil
}

// IsTerminal reports whether err is, or wraps, a non-retryable outbound
// failure.
func IsTerminal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Terminal
	}
	return false
}

func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
