// Package client drives a running mock's control channel from Go tests.
package client

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
)

// Client talks to the control channel at a base URL such as
// http://127.0.0.1:9998.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores raw under key exactly as given. raw need not be valid JSON.
func (c *Client) Set(ctx context.Context, key, raw string) error {
	resp, err := c.do(ctx, http.MethodPut, keyPath(key), strings.NewReader(raw))
	if err != nil {
		return err
	}
	return expect(resp, http.StatusNoContent)
}

// SetJSON stores the JSON encoding of v under key.
func (c *Client) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return c.Set(ctx, key, string(b))
}

// SetNull stores the null marker under key so lookups fall through it.
func (c *Client) SetNull(ctx context.Context, key string) error {
	return c.Set(ctx, key, "")
}

// SetMany stores several responses in one call. nil values store the null
// marker. It returns how many keys were stored.
func (c *Client) SetMany(ctx context.Context, responses map[string]any) (int, error) {
	b, err := json.Marshal(responses)
	if err != nil {
		return 0, fmt.Errorf("encode responses: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/responses", bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	var out struct {
		Stored int `json:"stored"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return 0, err
	}
	return out.Stored, nil
}

// Get returns the raw value under key. The null marker reads as "".
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, keyPath(key), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read %q: %w", key, err)
		}
		return string(b), nil
	case http.StatusNoContent:
		return "", nil
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	default:
		return "", unexpected(resp)
	}
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	resp, err := c.do(ctx, http.MethodDelete, keyPath(key), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return expect(resp, http.StatusNoContent)
}

// Clear removes every configured response.
func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/responses", nil)
	if err != nil {
		return err
	}
	return expect(resp, http.StatusNoContent)
}

// List returns every configured response. Null markers are JSON null.
func (c *Client) List(ctx context.Context) (map[string]json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, "/responses", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Responses map[string]json.RawMessage `json:"responses"`
	}
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Responses, nil
}

func keyPath(key string) string {
	return "/responses/" + url.PathEscape(key)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func expect(resp *http.Response, status int) error {
	defer resp.Body.Close()
	if resp.StatusCode != status {
		return unexpected(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func decode(resp *http.Response, status int, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode != status {
		return unexpected(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func unexpected(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(b))
}
