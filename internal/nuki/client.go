package nuki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.nuki.io"

var (
	ErrInvalidToken = errors.New("invalid api token")
	ErrForbidden    = errors.New("api access forbidden")
	ErrNotFound     = errors.New("api endpoint not found")
)

// Client talks to the Nuki Web API. All methods are safe for concurrent
// use; the underlying http.Client handles connection reuse.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *log.Logger
}

func NewClient(baseURL, token string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		token:      token,
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, ErrInvalidToken)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrForbidden)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// TestConnection verifies the token by fetching the account resource.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/account", nil, nil)
}

// Smartlocks lists all smartlocks visible to the token.
func (c *Client) Smartlocks(ctx context.Context) ([]Smartlock, error) {
	var locks []Smartlock
	if err := c.do(ctx, http.MethodGet, "/smartlock", nil, &locks); err != nil {
		return nil, err
	}
	return locks, nil
}

// SmartlockState fetches the current state of a single smartlock.
func (c *Client) SmartlockState(ctx context.Context, smartlockID int64) (Smartlock, error) {
	var lock Smartlock
	path := fmt.Sprintf("/smartlock/%d", smartlockID)
	if err := c.do(ctx, http.MethodGet, path, nil, &lock); err != nil {
		return Smartlock{}, err
	}
	return lock, nil
}

// SendAction submits a lock action (unlock, lock, unlatch, ...).
func (c *Client) SendAction(ctx context.Context, smartlockID int64, action int) error {
	path := fmt.Sprintf("/smartlock/%d/action", smartlockID)
	return c.do(ctx, http.MethodPost, path, map[string]int{"action": action}, nil)
}

// Logs fetches up to limit recent activity log records, newest first.
// A lock whose plan does not expose the log endpoint answers 403/404;
// that is reported as an empty list, not an error, so a poll cycle can
// proceed with "no new events".
func (c *Client) Logs(ctx context.Context, smartlockID int64, limit int) ([]LogRecord, error) {
	path := fmt.Sprintf("/smartlock/%d/log?limit=%d", smartlockID, limit)

	var records []LogRecord
	err := c.do(ctx, http.MethodGet, path, nil, &records)
	if err != nil {
		if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
			c.logger.Printf("log endpoint unavailable for smartlock %d: %v", smartlockID, err)
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}
