package tracker

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
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Config holds configuration for the HTTP tracker client.
type Config struct {
	// BaseURL is the tracker API root, e.g. https://tracker.example.com.
	BaseURL string `json:"base_url"`

	// Token authenticates requests as a bearer token.
	Token string `json:"token"`

	// RetryCount is the number of retries after the first attempt for
	// transient statuses. Defaults to 4.
	RetryCount int `json:"retry_count,omitempty"`

	// RetryDelay is the fixed sleep between attempts. Defaults to 1s.
	RetryDelay time.Duration `json:"retry_delay,omitempty"`

	// Timeout bounds a single HTTP call. Timeouts are non-retryable.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// HTTPClient talks to the tracker over HTTP with a fixed-delay retry
// policy for transient statuses.
type HTTPClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewHTTPClient creates a tracker client.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 4
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// CreateIssue files a new ticket.
func (c *HTTPClient) CreateIssue(ctx context.Context, issue *Issue) (*Issue, error) {
	return c.call(ctx, http.MethodPost, "/api/issues", issue)
}

// UpdateIssue pushes changed fields onto an existing ticket.
func (c *HTTPClient) UpdateIssue(ctx context.Context, externalID string, issue *Issue, removeFields []string) (*Issue, error) {
	payload := struct {
		*Issue
		RemoveFields []string `json:"remove_fields,omitempty"`
	}{Issue: issue, RemoveFields: removeFields}
	return c.call(ctx, http.MethodPut, "/api/issues/"+externalID, payload)
}

// GetIssue fetches the current remote state of a ticket.
func (c *HTTPClient) GetIssue(ctx context.Context, externalID string) (*Issue, error) {
	return c.call(ctx, http.MethodGet, "/api/issues/"+externalID, nil)
}

// call performs one logical tracker operation, retrying transient
// statuses up to RetryCount times with fixed RetryDelay sleeps and
// propagating the failure on the final attempt. Everything else fails
// immediately.
func (c *HTTPClient) call(ctx context.Context, method, path string, body any) (*Issue, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("tracker: encode request: %w", err)
		}
	}

	attempts := c.cfg.RetryCount + 1
	for attempt := 1; ; attempt++ {
		issue, retryable, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return issue, nil
		}
		if !retryable || attempt >= attempts {
			return nil, err
		}

		c.logger.Debug("tracker retry",
			"method", method,
			"path", path,
			"attempt", attempt,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, payload []byte) (issue *Issue, retryable bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("tracker: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network errors and timeouts are non-retryable for the calling
		// job; it records the failure and moves on.
		return nil, false, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out Issue
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("tracker: decode response: %w", err)
		}
		return &out, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrTicketNotFound, path)

	case transientStatus(resp.StatusCode):
		return nil, true, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}

// transientStatus reports whether the tracker signalled a retryable
// condition.
func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
