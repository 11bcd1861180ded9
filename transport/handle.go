package transport

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"
)

// Client is a cheap, non-owning handle over a pooled stage chain. Many
// handles may reference the same chain; closing a handle releases its
// reference and never disposes the shared chain. Configure a handle
// (timeout, base URL, default headers) before sharing it across goroutines;
// issuing requests is safe concurrently.
type Client struct {
	name string
	hc   *nethttp.Client

	baseURL string
	headers nethttp.Header

	closeOnce sync.Once
	release   func()
}

func newClientHandle(name string, chain nethttp.RoundTripper, release func()) *Client {
	return &Client{
		name:    name,
		hc:      &nethttp.Client{Transport: chain},
		headers: make(nethttp.Header),
		release: release,
	}
}

// Name returns the pool name this handle was created for.
func (c *Client) Name() string {
	return c.name
}

// HTTPClient exposes the underlying *http.Client for callers that need to
// pass a standard client around. Requests through it remain instrumented,
// and the transport's lifetime is still governed by the pool.
func (c *Client) HTTPClient() *nethttp.Client {
	return c.hc
}

// SetTimeout bounds every request issued through this handle.
func (c *Client) SetTimeout(d time.Duration) {
	c.hc.Timeout = d
}

// SetBaseURL makes Get/Post resolve relative paths against base.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// SetDefaultHeader registers a header applied to every request issued
// through Do/Get/Post unless the request already carries it.
func (c *Client) SetDefaultHeader(key, value string) {
	c.headers.Set(key, value)
}

// Do sends req through the pooled chain after applying default headers.
func (c *Client) Do(req *nethttp.Request) (*nethttp.Response, error) {
	for key, values := range c.headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return c.hc.Do(req)
}

// Get issues a GET against path, resolved against the handle's base URL.
func (c *Client) Get(ctx context.Context, path string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.resolveURL(path), nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post issues a POST against path, resolved against the handle's base URL.
func (c *Client) Post(ctx context.Context, path, contentType string, body io.Reader) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.resolveURL(path), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// Close releases this handle's reference on the pooled chain. Safe to call
// multiple times; only the first call releases.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.release != nil {
			c.release()
		}
	})
	return nil
}

func (c *Client) resolveURL(path string) string {
	if c.baseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}
