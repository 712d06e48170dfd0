package pixiv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pixivrss/pixivrss-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the pixiv web host serving the ajax API.
	DefaultBaseURL = "https://www.pixiv.net"
	// DefaultEmbedURL is the host serving embeddable previews.
	DefaultEmbedURL = "https://embed.pixiv.net"
	// DefaultUserAgent identifies the feed server to pixiv.
	DefaultUserAgent = "pixivrss/1.0"

	// Rate limit per upstream host: 5 requests per second, burst of 20
	defaultRPS   = 5.0
	defaultBurst = 20

	// HTTP client settings
	defaultTimeout = 30 * time.Second

	// Upper bound on error bodies we keep for diagnostics.
	maxErrorBody = 512
)

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	BaseURL   string
	EmbedURL  string
	UserAgent string
	RPS       float64
	Burst     int
	Timeout   time.Duration

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client is a rate-limited pixiv client.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.KeyedRateLimiter
	baseURL   string
	embedURL  string
	userAgent string
	logger    *slog.Logger
}

// New creates a new pixiv client.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.EmbedURL == "" {
		opts.EmbedURL = DefaultEmbedURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      httpClient,
		limiter:   ratelimit.New(opts.RPS, opts.Burst),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		embedURL:  strings.TrimRight(opts.EmbedURL, "/"),
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// EmbedURL returns the embed host the client probes.
func (c *Client) EmbedURL() string {
	return c.embedURL
}

// doRequest executes an HTTP request with per-host rate limiting.
// The caller owns the response body.
func (c *Client) doRequest(ctx context.Context, method, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	// Wait for rate limit
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.baseURL+"/")
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json")
	}

	c.logger.Debug("pixiv request",
		"method", method,
		"host", u.Host,
		"path", u.Path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// getJSON executes a GET and returns the body of a 200 response.
func (c *Client) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps a pixiv status code to a sentinel error.
func checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status >= 500:
		return ErrServer
	default:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, status, string(body))
	}
}
