package bazarr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds every request issued by the client
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "bazarrwatch"

	endpointStatus = "/api/system/status"
	endpointBadges = "/api/badges"
	endpointHealth = "/api/system/health"
)

// Client talks to one or more Bazarr instances. Connection details are passed
// per call so a key replacement never races an in-flight request.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewClient creates a new Bazarr client
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: defaultUserAgent,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest performs an authenticated GET and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, cfg ConnectionConfig, endpoint string) ([]byte, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}

	url := cfg.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-KEY", cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Bazarr API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	return body, nil
}

// getJSON performs doRequest and decodes the body into dest
func (c *Client) getJSON(ctx context.Context, cfg ConnectionConfig, endpoint string, dest any) error {
	body, err := c.doRequest(ctx, cfg, endpoint)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
