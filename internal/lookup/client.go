// Package lookup talks to the external data providers. The core only
// needs success or failure plus an opaque payload; interpreting the
// payload is the caller's problem.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ErrUpstreamUnavailable covers transport failures, timeouts and non-2xx
// answers alike. The core reports it and never retries.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Provider is one external lookup service.
type Provider interface {
	Fetch(ctx context.Context, query string) ([]byte, error)
}

// Client is an HTTP Provider. The upstream endpoints take the query as
// a trailing URL parameter.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Fetch(ctx context.Context, query string) ([]byte, error) {
	endpoint := c.BaseURL + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstreamUnavailable)
	}

	return body, nil
}
