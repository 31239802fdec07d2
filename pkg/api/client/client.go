package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
)

// Client provides typed access to the TechVault API for the dashboard and CLI.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL returns the normalised API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Reasons []string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError carrying status.
func IsStatus(err error, status int) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp.StatusCode, resp.Body)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(status int, body io.Reader) APIError {
	apiErr := APIError{Status: status}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var payload struct {
		Message string   `json:"message"`
		Reasons []string `json:"reasons"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(payload.Message)
	apiErr.Reasons = payload.Reasons
	return apiErr
}

// LoginResponse captures the identity and session token emitted by the API.
type LoginResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// CreateAssetRequest is the body of POST /api/assets.
type CreateAssetRequest struct {
	Name           string             `json:"name"`
	Type           domain.AssetType   `json:"type"`
	Status         domain.AssetStatus `json:"status,omitempty"`
	Specifications string             `json:"specifications"`
	AssignedTo     *string            `json:"assignedTo,omitempty"`
}

// DeleteResponse is returned by DELETE /api/assets/{id}.
type DeleteResponse struct {
	Message string       `json:"message"`
	Asset   domain.Asset `json:"asset"`
}

// ExportResult describes an uploaded inventory snapshot.
type ExportResult struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Health is the liveness payload.
type Health struct {
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	Timestamp  string         `json:"timestamp"`
	Components map[string]any `json:"components"`
}

// Login authenticates and returns a session token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "", &resp)
	return resp, err
}

// ListAssets returns every asset, newest first.
func (c *Client) ListAssets(ctx context.Context, token string) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.do(ctx, http.MethodGet, "/api/assets", nil, token, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAsset fetches one asset.
func (c *Client) GetAsset(ctx context.Context, token, id string) (domain.Asset, error) {
	var a domain.Asset
	err := c.do(ctx, http.MethodGet, "/api/assets/"+url.PathEscape(id), nil, token, &a)
	return a, err
}

// CreateAsset creates an asset.
func (c *Client) CreateAsset(ctx context.Context, token string, req CreateAssetRequest) (domain.Asset, error) {
	var a domain.Asset
	err := c.do(ctx, http.MethodPost, "/api/assets", req, token, &a)
	return a, err
}

// UpdateAsset applies a partial update.
func (c *Client) UpdateAsset(ctx context.Context, token, id string, patch domain.AssetPatch) (domain.Asset, error) {
	var a domain.Asset
	err := c.do(ctx, http.MethodPut, "/api/assets/"+url.PathEscape(id), patch, token, &a)
	return a, err
}

// DeleteAsset removes an asset and returns it.
func (c *Client) DeleteAsset(ctx context.Context, token, id string) (domain.Asset, error) {
	var resp DeleteResponse
	err := c.do(ctx, http.MethodDelete, "/api/assets/"+url.PathEscape(id), nil, token, &resp)
	return resp.Asset, err
}

// Analytics returns aggregate counts and the recent list.
func (c *Client) Analytics(ctx context.Context, token string) (domain.Analytics, error) {
	var a domain.Analytics
	err := c.do(ctx, http.MethodGet, "/api/assets/analytics", nil, token, &a)
	return a, err
}

// Export uploads an inventory snapshot to object storage.
func (c *Client) Export(ctx context.Context, token string) (ExportResult, error) {
	var res ExportResult
	err := c.do(ctx, http.MethodPost, "/api/assets/export", nil, token, &res)
	return res, err
}

// Health probes the API.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, "", &h)
	return h, err
}
