package platform

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

	"github.com/stuga-cloud/console/internal/domain"
)

// Client talks to the container platform API on behalf of console users.
type Client struct {
	baseURL    string
	token      string
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
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// New constructs a Client for the platform at base, authenticating with token.
func New(base, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, errors.New("platform api url is required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid platform api url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError is a non-2xx platform response that did not map to a domain error.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform request failed with status %d", e.Status)
	}
	return fmt.Sprintf("platform request failed (%d): %s", e.Status, e.Message)
}

// call identifies one platform operation for error mapping.
type call struct {
	op     string
	kind   domain.ResourceKind
	id     string
	userID string
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any, meta call) error {
	if c == nil {
		return errors.New("platform client is nil")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request body: %w", meta.op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", meta.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteUnknownError{Op: meta.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mapStatus(resp.StatusCode, extractMessage(resp.Body), meta)
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &domain.RemoteUnknownError{Op: meta.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// mapStatus converts a platform status code into the domain error taxonomy.
func mapStatus(status int, message string, meta call) error {
	switch status {
	case http.StatusNotFound:
		return &domain.NotFoundError{Kind: meta.kind, ID: meta.id}
	case http.StatusUnauthorized:
		return &domain.UnauthenticatedError{Op: meta.op, Remote: true}
	case http.StatusForbidden:
		return &domain.UnauthorizedError{UserID: meta.userID, Remote: true}
	case http.StatusInternalServerError:
		return &domain.RemoteInternalError{Op: meta.op, Message: message}
	default:
		return &domain.RemoteUnknownError{Op: meta.op, Err: APIError{Status: status, Message: message}}
	}
}

func extractMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Message != "" {
		return strings.TrimSpace(payload.Message)
	}
	return strings.TrimSpace(payload.Error)
}

func withUser(path, userID string) string {
	return path + "?userId=" + url.QueryEscape(userID)
}
