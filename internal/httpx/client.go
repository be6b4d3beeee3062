package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is a shared JSON-over-HTTP client with connection reuse. GET
// requests retry a bounded number of times on gateway timeouts; POST
// requests never retry, since the indexed-data query path handles failures
// at its own layer.
type Client struct {
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// New builds a Client. A nil logger falls back to a no-op logger.
func New(timeout time.Duration, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// GetJSON fetches url and decodes the response body into out. Only a 504
// status is retried, with a fixed delay between attempts.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}

		if resp.StatusCode == http.StatusGatewayTimeout && attempt < c.maxRetries {
			resp.Body.Close()
			c.logger.Warn("gateway timeout, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
			)
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}

		return decodeJSON(resp, out)
	}
}

// PostJSON sends body as JSON to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}

	return decodeJSON(resp, out)
}

func decodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(text))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
