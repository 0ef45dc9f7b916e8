package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mcnannay/peptrackr/internal/infra/buildinfo"
)

// DefaultPrefix is the server's default API prefix.
const DefaultPrefix = "/api/v1"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx server response.
type APIError struct {
	Status    int
	Code      string
	Detail    string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Detail)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status string `json:"status"`
}

// ImportResult is the backup import response.
type ImportResult struct {
	OK       bool `json:"ok"`
	Imported int  `json:"imported"`
	Removed  int  `json:"removed"`
}

// HTTPClient talks to the server's HTTP API.
type HTTPClient struct {
	baseURL string
	prefix  string
	client  *http.Client
}

// NewHTTPClient creates a client for server (host:port or URL) with the API
// mounted under prefix.
func NewHTTPClient(server, prefix string) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = "/" + strings.Trim(prefix, "/")

	return &HTTPClient{
		baseURL: baseURL,
		prefix:  prefix,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get returns the raw JSON value stored under key.
func (c *HTTPClient) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.keyPath(key), nil, "", &value); err != nil {
		return nil, err
	}
	return value, nil
}

// List returns the stored entries among keys, or every entry when keys is
// empty.
func (c *HTTPClient) List(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	path := c.prefix + "/store"
	if len(keys) > 0 {
		q := url.Values{"keys": keys}
		path += "?" + q.Encode()
	}

	entries := map[string]json.RawMessage{}
	if err := c.do(ctx, http.MethodGet, path, nil, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Put stores value (a JSON document) under key.
func (c *HTTPClient) Put(ctx context.Context, key string, value []byte) error {
	return c.do(ctx, http.MethodPut, c.keyPath(key), value, "application/json", nil)
}

// Delete removes key.
func (c *HTTPClient) Delete(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, c.keyPath(key), nil, "", nil)
}

// Export returns the backup document exactly as the server sent it.
func (c *HTTPClient) Export(ctx context.Context) ([]byte, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.prefix+"/backup/export", nil, "", &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Import uploads a backup document. With replace set, keys absent from the
// document are removed.
func (c *HTTPClient) Import(ctx context.Context, doc []byte, replace bool) (*ImportResult, error) {
	path := c.prefix + "/backup/import"
	if replace {
		path += "?replace=" + strconv.FormatBool(replace)
	}

	var result ImportResult
	if err := c.do(ctx, http.MethodPost, path, doc, "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health calls the liveness probe.
func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Ready calls the readiness probe, which fails with 503 when storage is
// unreachable.
func (c *HTTPClient) Ready(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/ready", nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) keyPath(key string) string {
	return c.prefix + "/store/" + url.PathEscape(key)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, contentType string, target any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("cli"))
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes a JSON response body into target, or returns an
// *APIError for non-2xx statuses.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Code:      resp.Header.Get("X-Error-Code"),
			RequestID: resp.Header.Get("X-Request-ID"),
		}
		var errResp struct {
			Code      string `json:"code"`
			Detail    string `json:"detail"`
			RequestID string `json:"request_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if errResp.Code != "" {
				apiErr.Code = errResp.Code
			}
			if errResp.RequestID != "" {
				apiErr.RequestID = errResp.RequestID
			}
			apiErr.Detail = errResp.Detail
		}
		return apiErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
