package imageboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL of the public read-only API.
	DefaultBaseURL = "https://a.4cdn.org"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultCatalogDelay is the minimum gap between catalog requests.
	DefaultCatalogDelay = time.Second

	// DefaultThreadDelay is the minimum gap between thread requests.
	DefaultThreadDelay = 2 * time.Second

	// maxErrorBody caps how much of an error body is kept in APIError.
	maxErrorBody = 512
)

// Client is an imageboard API client. Requests are paced per class
// (catalog, thread) so that at most one request per interval starts.
type Client struct {
	baseURL        string
	userAgent      string
	httpClient     *http.Client
	logger         arbor.ILogger
	catalogLimiter *rate.Limiter
	threadLimiter  *rate.Limiter
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithCatalogDelay sets the minimum gap between catalog requests.
func WithCatalogDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.catalogLimiter = newIntervalLimiter(d)
	}
}

// WithThreadDelay sets the minimum gap between thread requests.
func WithThreadDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.threadLimiter = newIntervalLimiter(d)
	}
}

// WithRetry sets how many times a retryable failure is retried and the backoff bounds.
func WithRetry(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// NewClient creates a new imageboard API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		catalogLimiter: newIntervalLimiter(DefaultCatalogDelay),
		threadLimiter:  newIntervalLimiter(DefaultThreadDelay),
		maxRetries:     2,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = arbor.NewLogger()
	}

	return c
}

func newIntervalLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// FetchCatalog retrieves a board catalog, flattened across pages, with sticky threads removed.
func (c *Client) FetchCatalog(ctx context.Context, board string) ([]models.CatalogThread, error) {
	var pages []models.CatalogPage
	if err := c.get(ctx, c.catalogLimiter, fmt.Sprintf("/%s/catalog.json", board), &pages); err != nil {
		return nil, err
	}

	threads := make([]models.CatalogThread, 0)
	for _, page := range pages {
		for _, thread := range page.Threads {
			if thread.Sticky != 0 {
				continue
			}
			threads = append(threads, thread)
		}
	}

	c.logger.Debug().
		Str("board", board).
		Int("pages", len(pages)).
		Int("threads", len(threads)).
		Msg("Catalog fetched")

	return threads, nil
}

// FetchThread retrieves one thread with all of its posts.
func (c *Client) FetchThread(ctx context.Context, board string, threadNo int64) (*models.Thread, error) {
	var thread models.Thread
	if err := c.get(ctx, c.threadLimiter, fmt.Sprintf("/%s/thread/%d.json", board, threadNo), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// get performs a paced GET with retry on transient failures.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt - 1)
			c.logger.Debug().
				Str("path", path).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying imageboard request")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Wait for the pacing limiter so consecutive requests stay apart
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		lastErr = c.do(ctx, path, result)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (c *Client) do(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Imageboard API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// backoff returns an exponential delay with ±25% jitter, capped at maxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	backoff := float64(c.initialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > float64(c.maxBackoff) {
		backoff = float64(c.maxBackoff)
	}
	backoff += backoff * 0.25 * (rand.Float64()*2 - 1)
	if backoff < 0 {
		backoff = float64(c.initialBackoff)
	}
	return time.Duration(backoff)
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
