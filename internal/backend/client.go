// Package backend is the HTTP client for the AutoLav collection API.
// The backend owns scraping and authentication against the laundry
// portal; this client only speaks its JSON surface.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TransportError is a network-level failure: the backend was
// unreachable, timed out, or answered non-2xx. Body carries the
// response body (or transport error text) verbatim so the operator
// sees exactly what the backend said.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Body       string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return e.Body
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to one AutoLav backend instance.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every request. Collection runs can take minutes
// while the backend fans out over units, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client for the backend at baseURL. apiToken is
// sent on every request as X-API-Token.
func NewClient(baseURL, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect issues the single batched scrape call for a run. The
// response carries one UnitResult per requested unit, in request
// order; unit-level failures ride inside the results and are not
// errors here. Any error returned is a *TransportError.
func (c *Client) Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	c.logger.Info("dispatching collection request",
		zap.Int("units", len(req.Units)),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate))

	var resp CollectResponse
	if err := c.postJSON(ctx, "/api/scrape", req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("collection response received",
		zap.Int("results", len(resp.Results)),
		zap.Int("failed", resp.FailedUnits))
	return &resp, nil
}

// DiscoverUnits asks the backend for every unit it can see on the
// portal. Used to pre-populate the identifier input only.
func (c *Client) DiscoverUnits(ctx context.Context) (*DiscoverResponse, error) {
	var resp DiscoverResponse
	if err := c.postJSON(ctx, "/api/discover_units", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CredentialStatus probes whether the backend holds portal credentials.
func (c *Client) CredentialStatus(ctx context.Context) (*CredentialStatus, error) {
	var resp CredentialStatus
	if err := c.do(ctx, http.MethodGet, "/api/login", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateCredentials replaces the portal credentials stored by the
// backend.
func (c *Client) UpdateCredentials(ctx context.Context, creds Credentials) error {
	c.logger.Info("updating backend credentials", zap.String("username", creds.Username))
	return c.postJSON(ctx, "/api/login", creds, nil)
}

// Health pings the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Token", c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Body: err.Error()}
	}
	defer resp.Body.Close()

	// 1MB is far beyond any real response; guards against a
	// misconfigured base URL pointing at something huge.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}
