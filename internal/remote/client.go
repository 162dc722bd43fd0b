// Package remote is the HTTP client for the storefront's catalog, cart, coupon and order services.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/apperror"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// TokenSource yields the bearer credential attached to every call
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource for a fixed token
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Client talks to the remote storefront services over HTTP/JSON
type Client struct {
	baseURL         string
	httpClient      *http.Client
	token           TokenSource
	maxReadAttempts int
	retryDelay      time.Duration
	log             *slog.Logger
	metrics         *metrics.Collector
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets the bearer credential source
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithMaxReadAttempts bounds retries of idempotent reads
func WithMaxReadAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReadAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between read attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics records request latency on the collector
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the API rooted at baseURL (e.g. http://host:8080/api)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		maxReadAttempts: 3,
		retryDelay:      200 * time.Millisecond,
		log:             logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "remote_client")
	return c
}

type errorBody struct {
	Error string `json:"error"`
}

// read performs an idempotent GET, retrying transport failures
func (c *Client) read(ctx context.Context, op, path string, out interface{}) error {
	var err error
	for attempt := 1; attempt <= c.maxReadAttempts; attempt++ {
		err = c.do(ctx, op, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}

		appErr, ok := apperror.As(err)
		if !ok || !appErr.Retryable() || attempt == c.maxReadAttempts {
			return err
		}

		c.log.Warn("retrying read", "operation", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return apperror.Transport(op, ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	return err
}

// do performs exactly one request
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RemoteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Transport(op, fmt.Errorf("invalid response body: %w", err))
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	c.log.Debug("remote call rejected", "operation", op, "status", resp.StatusCode, "reason", body.Error)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperror.NotFound(resp.StatusCode, body.Error)
	case resp.StatusCode >= http.StatusInternalServerError:
		return &apperror.Error{
			Kind:    apperror.KindTransport,
			Status:  resp.StatusCode,
			Message: op + " failed",
			Cause:   fmt.Errorf("server error %d: %s", resp.StatusCode, body.Error),
		}
	default:
		return apperror.Rejected(resp.StatusCode, body.Error)
	}
}
