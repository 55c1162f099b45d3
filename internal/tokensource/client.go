package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a response body is read, success or not.
const maxResponseBytes = 1 << 20

// Result is the payload returned by a successful refresh exchange. It is
// transient: consumed immediately by the update writer, never persisted on
// its own.
type Result struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// FailureKind classifies a failed refresh exchange.
type FailureKind string

const (
	// FailureNetwork covers transport-level errors and timeouts.
	FailureNetwork FailureKind = "network_error"
	// FailureRemoteRejected covers any non-200 response.
	FailureRemoteRejected FailureKind = "remote_rejected"
	// FailureMalformedResponse covers 200 responses that do not parse into
	// a usable Result.
	FailureMalformedResponse FailureKind = "malformed_response"
)

// RefreshError is the failure reason of a single refresh attempt.
type RefreshError struct {
	Kind       FailureKind
	StatusCode int    // set for remote rejections
	Body       string // response body for remote rejections, truncated
	Err        error
}

func (e *RefreshError) Error() string {
	switch e.Kind {
	case FailureRemoteRejected:
		return fmt.Sprintf("refresh rejected: status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("refresh failed (%s): %v", e.Kind, e.Err)
	}
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUserAgent overrides the client identifier header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) { c.userAgent = userAgent }
}

// WithTimeout overrides the per-exchange timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithTransport sets a custom base transport for refresh requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) { c.httpClient.Transport = transport }
}

// Client performs the refresh exchange against the remote endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// New creates a Client for the given API base URL.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: UserAgent,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: http.DefaultTransport,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Refresh exchanges the refresh token for a new access token. Exactly one
// POST is issued; the caller owns any retry policy.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token cannot be empty")
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RefreshError{Kind: FailureNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RefreshError{Kind: FailureNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RefreshError{
			Kind:       FailureRemoteRejected,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &RefreshError{Kind: FailureMalformedResponse, Err: err}
	}
	if result.AccessToken == "" {
		return nil, &RefreshError{Kind: FailureMalformedResponse, Err: errors.New("response carries no access_token")}
	}
	return &result, nil
}
