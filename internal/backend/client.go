// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitpower-web/internal/domain/auth"

	"go.uber.org/zap"
)

const (
	signinPath      = "/api/v1/auth/signin"
	maxResponseBody = 1 << 20
)

// StatusError is a non-2xx answer from the backend. Message is the
// backend's own `message` field, possibly empty.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// TransportError means no usable answer came back: the request could not be
// sent, or the body could not be read or decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the FitPower REST backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// BaseURL is the backend root, used by the API proxy.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Signin exchanges credentials for a token and the user's identity fields.
func (c *Client) Signin(ctx context.Context, req auth.SigninRequest) (*auth.SigninResponse, error) {
	var resp auth.SigninResponse
	if err := c.do(ctx, http.MethodPost, signinPath, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) FetchTrainer(ctx context.Context, token, dni string) (*auth.TrainerData, error) {
	var out auth.TrainerData
	if err := c.fetchProfile(ctx, auth.RoleTrainer, token, dni, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchNutritionist(ctx context.Context, token, dni string) (*auth.NutritionistData, error) {
	var out auth.NutritionistData
	if err := c.fetchProfile(ctx, auth.RoleNutritionist, token, dni, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchClient(ctx context.Context, token, dni string) (*auth.ClientData, error) {
	var out auth.ClientData
	if err := c.fetchProfile(ctx, auth.RoleClient, token, dni, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) fetchProfile(ctx context.Context, role auth.Role, token, dni string, out interface{}) error {
	resource, ok := role.ProfileResource()
	if !ok {
		return fmt.Errorf("role %s has no profile resource", role)
	}
	path := fmt.Sprintf("/api/v1/%s/%s", resource, url.PathEscape(dni))
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func extractMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}
