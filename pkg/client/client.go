// Package client drives a running uiharness server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/logger"
	"github.com/devicelab-dev/uiharness/pkg/registry"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client communicates with a uiharness server.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a client for the server at baseURL ("http://127.0.0.1:8080").
func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a command response body.
type Response struct {
	Status  core.Status `json:"status"`
	Code    string      `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ServerStatus is the body of GET /status.
type ServerStatus struct {
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Settle  string `json:"settle"`
}

// Element is one entry of GET /elements.
type Element struct {
	registry.Element
	Visible bool `json:"visible"`
}

// request makes a GET request and returns the body of a 2xx response.
// Error responses are decoded into *core.ExecutionError.
func (c *Client) request(ctx context.Context, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("GET %s [%v] ERROR: %v", path, elapsed, err)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.Debug("GET %s?%s [%v] %d", path, params.Encode(), elapsed, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// decodeError rebuilds the server's error, keeping its code so that
// errors.Is(err, core.ErrElementNotFound) works on the client side.
func decodeError(status int, body []byte) error {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil || r.Code == "" {
		return core.ErrInternal.WithMessagef("server error %d: %s", status, strings.TrimSpace(string(body)))
	}
	return core.NewExecutionError(categoryFor(status), r.Code, r.Reason)
}

func categoryFor(status int) core.ErrorCategory {
	switch status {
	case http.StatusBadRequest, http.StatusTooManyRequests, http.StatusMethodNotAllowed:
		return core.ErrCategoryRequest
	case http.StatusNotFound:
		return core.ErrCategoryResolution
	case http.StatusConflict:
		return core.ErrCategoryBounds
	case http.StatusGatewayTimeout:
		return core.ErrCategoryTimeout
	default:
		return core.ErrCategoryInternal
	}
}

func (c *Client) command(ctx context.Context, path string, params url.Values) (*Response, error) {
	body, err := c.request(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &r, nil
}

// Tap taps the element matched by id.
func (c *Client) Tap(ctx context.Context, id registry.Identifier) (*Response, error) {
	params := url.Values{}
	switch id.Mode {
	case registry.MatchText:
		params.Set("text", id.Value)
	default:
		params.Set("key", id.Value)
	}
	return c.command(ctx, "/tap", params)
}

// Reset restores the initial state.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.Tap(ctx, registry.ByText(registry.ReservedText))
	return err
}

// Texts returns the key/text pairs for key; empty when nothing matches.
func (c *Client) Texts(ctx context.Context, key string) ([]core.TextEntry, error) {
	body, err := c.request(ctx, "/texts", url.Values{"key": {key}})
	if err != nil {
		return nil, err
	}
	entries := []core.TextEntry{}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse texts: %w", err)
	}
	return entries, nil
}

// ScrollInto scrolls container by (dx, dy) and checks item is visible.
func (c *Client) ScrollInto(ctx context.Context, container, item string, dx, dy int) (*Response, error) {
	return c.command(ctx, "/scroll-into", url.Values{
		"scrollable-key": {container},
		"key":            {item},
		"dx":             {strconv.Itoa(dx)},
		"dy":             {strconv.Itoa(dy)},
	})
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	body, err := c.request(ctx, "/status", nil)
	if err != nil {
		return nil, err
	}
	var s ServerStatus
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &s, nil
}

// Elements returns every element with its current text and visibility.
func (c *Client) Elements(ctx context.Context) ([]Element, error) {
	body, err := c.request(ctx, "/elements", nil)
	if err != nil {
		return nil, err
	}
	var elements []Element
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("parse elements: %w", err)
	}
	return elements, nil
}

// Idle waits until pending tap effects are applied, up to timeout.
func (c *Client) Idle(ctx context.Context, timeout time.Duration) error {
	params := url.Values{}
	if timeout > 0 {
		params.Set("timeout", timeout.String())
	}
	_, err := c.command(ctx, "/idle", params)
	return err
}

// WaitReady polls /status until the server answers or ctx ends.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s, err := c.Status(ctx)
		if err == nil && s.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return core.ErrTimeout.WithMessagef("server at %s not ready", c.baseURL).WithCause(ctx.Err())
		case <-ticker.C:
		}
	}
}
