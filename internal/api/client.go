package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thunderctl/pkg/logging"
)

// Response captures the outcome of a single API call.
//
// StatusCode 0 means the request never reached the server (connection
// refused, timeout, malformed response); Err then describes the transport
// failure. Callers must treat 0 as "unreachable", distinct from any HTTP
// 4xx/5xx the server actually returned.
type Response struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Unreachable reports whether the call failed at the transport level.
func (r Response) Unreachable() bool {
	return r.StatusCode == 0
}

// Client issues HTTP calls against the Thunder API under a fixed base URL.
// It performs no retries; readiness polling and re-run policy live with the
// callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given base URL. TLS certificate verification
// is disabled: the local development server presents a self-signed
// certificate.
func New(baseURL string, requestTimeout time.Duration) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call sends a single request and captures status code and raw body.
// A non-nil body is serialized as JSON. Transport-level failures yield
// StatusCode 0 and a descriptive Err instead of a Go error return, so the
// caller's status handling stays in one place.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}) Response {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Response{Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug("APIClient", "%s %s", method, url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Err: fmt.Errorf("request to %s failed: %w", url, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Err: fmt.Errorf("failed to read response from %s: %w", url, err)}
	}

	logging.Debug("APIClient", "%s %s -> %d (%d bytes)", method, url, resp.StatusCode, len(data))

	return Response{StatusCode: resp.StatusCode, Body: data}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) Response {
	return c.Call(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) Response {
	return c.Call(ctx, http.MethodPost, path, body)
}
