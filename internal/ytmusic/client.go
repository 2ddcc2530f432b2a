// Package ytmusic fetches listening history from a ytmusicapi-compatible
// HTTP endpoint.
package ytmusic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	userAgent = "ytmscrobble/0.1 (https://github.com/llehouerou/ytmscrobble)"

	maxFetchTries = 3
)

// Client provides access to the YouTube Music history feed.
type Client struct {
	endpoint   string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a history client for the given endpoint. authHeader is
// the browser-auth blob sent as the Authorization header; it may be empty
// when the endpoint handles authentication itself.
func NewClient(endpoint, authHeader string) *Client {
	return &Client{
		endpoint:   endpoint,
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// History fetches the recent listening history. Transient failures are
// retried with exponential backoff; authentication rejections are not
// retried and fail the fetch immediately.
func (c *Client) History(ctx context.Context) ([]HistoryItem, error) {
	items, err := backoff.Retry(ctx, func() ([]HistoryItem, error) {
		return c.fetchHistory(ctx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxFetchTries))
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return items, nil
}

func (c *Client) fetchHistory(ctx context.Context) ([]HistoryItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Credential problem: retrying cannot help.
		return nil, backoff.Permanent(fmt.Errorf("authentication rejected: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	var items []HistoryItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}
