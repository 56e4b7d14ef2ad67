// Package platform provides the BlockSecOps results API client. Editor
// plugins use it to record scans and submit normalized findings so
// results show up in the team dashboard alongside CI scans.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
)

// ScanSource identifies which integration submitted a scan.
type ScanSource string

const (
	SourceCLI       ScanSource = "cli"
	SourceVSCode    ScanSource = "vscode"
	SourceJetBrains ScanSource = "jetbrains"
	SourceNeovim    ScanSource = "neovim"
	SourceVim       ScanSource = "vim"
)

// Valid reports whether the source is one the API accepts.
func (s ScanSource) Valid() bool {
	switch s {
	case SourceCLI, SourceVSCode, SourceJetBrains, SourceNeovim, SourceVim:
		return true
	}
	return false
}

// Client is the results API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     core.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetries sets retry count and base delay for transient failures.
func WithRetries(max int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryDelay = delay
	}
}

// New creates a results API client.
func New(opts ...Option) *Client {
	c := &Client{
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = core.LoggerOrNop(c.logger)
	return c
}

// CreateScanRequest starts a scan record.
type CreateScanRequest struct {
	Target        string     `json:"target"`
	ScanSource    ScanSource `json:"scan_source"`
	ClientVersion string     `json:"client_version,omitempty"`
}

// ScanRecord is the API's view of a scan.
type ScanRecord struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	ScanSource ScanSource `json:"scan_source"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateScan registers a new scan with the API.
func (c *Client) CreateScan(ctx context.Context, req *CreateScanRequest) (*ScanRecord, error) {
	if !req.ScanSource.Valid() {
		return nil, fmt.Errorf("invalid scan_source %q", req.ScanSource)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/scans", body)
	if err != nil {
		return nil, err
	}

	var rec ScanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &rec, nil
}

// SubmitFindingsRequest is the findings upload payload.
type SubmitFindingsRequest struct {
	ExitCode int               `json:"exit_code"`
	Findings []finding.Finding `json:"findings"`
	Summary  finding.Summary   `json:"summary"`
}

// SubmitResult is the API's acknowledgement of a findings upload.
type SubmitResult struct {
	ScanID   string `json:"scan_id"`
	Accepted int    `json:"accepted"`
	Status   string `json:"status"`
}

// SubmitFindings uploads normalized findings for a scan.
func (c *Client) SubmitFindings(ctx context.Context, scanID string, req *SubmitFindingsRequest) (*SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/scans/%s/findings", c.baseURL, scanID)
	data, err := c.doRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	c.logger.Debug("submitted %d findings for scan %s", result.Accepted, scanID)
	return &result, nil
}

// GetScan retrieves a scan record.
func (c *Client) GetScan(ctx context.Context, scanID string) (*ScanRecord, error) {
	url := fmt.Sprintf("%s/api/v1/scans/%s", c.baseURL, scanID)
	data, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var rec ScanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &rec, nil
}

// TestConnection verifies the API is reachable and the key is valid.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	return err
}

// doRequest performs an HTTP request with retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request (attempt %d/%d) after %v", attempt, c.maxRetries, backoff)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		data, err := c.doRequestOnce(ctx, method, url, body)
		if err == nil {
			return data, nil
		}

		lastErr = err

		// Don't retry on client errors (4xx) except 429 (rate limit)
		if isClientError(err) && !isRateLimitError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// doRequestOnce performs a single HTTP request.
func (c *Client) doRequestOnce(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "blocksecops-editor-sdk/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// IsHTTPError checks if err is an HTTPError and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

func isClientError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500
	}
	return false
}

func isRateLimitError(err error) bool {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
