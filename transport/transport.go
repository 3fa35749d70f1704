// Package transport is the shared HTTP client every provider adapter sends
// requests through.
//
// Grounded on the teacher's pkg/internal/http/client.go (Client/Config/
// Request/Response), generalized with a DoStream that hands back a
// cancel-on-close io.ReadCloser for SSE/NDJSON bodies.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/llmkit-go/llmkit/llmkiterr"
)

var DefaultHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps an *http.Client with a base URL, default headers, and
// llmkit's error conventions.
type Client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

func NewClient(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout > 0 {
			client = &http.Client{
				Timeout: cfg.Timeout,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			}
		} else {
			client = DefaultHTTPClient
		}
	}
	return &Client{client: client, baseURL: cfg.BaseURL, headers: cfg.Headers}
}

// Request is one HTTP call to issue.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Response is a fully-buffered HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *Client) buildURL(req Request) string {
	full := c.baseURL + req.Path
	if len(req.Query) == 0 {
		return full
	}
	q := url.Values{}
	for k, v := range req.Query {
		q.Set(k, v)
	}
	return full + "?" + q.Encode()
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, llmkiterr.NewSerialization(err, "marshal request body")
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req), bodyReader)
	if err != nil {
		return nil, llmkiterr.NewInvalidRequest("", "build HTTP request: %v", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// Do performs req and buffers the full response body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyDoErr(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llmkiterr.NewNetwork(err, "read response body")
	}

	return &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: respBody}, nil
}

// DoJSON performs req and decodes the JSON response into result.
func (c *Client) DoJSON(ctx context.Context, req Request, result any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return llmkiterr.NewProvider("", resp.StatusCode, nil, "HTTP %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return llmkiterr.NewSerialization(err, "decode JSON response")
	}
	return nil
}

// DoStream performs req and returns the live response body for the caller
// to read incrementally (SSE/NDJSON). The caller must Close it.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyDoErr(ctx, err)
	}
	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		errBody, _ := io.ReadAll(httpResp.Body)
		return nil, llmkiterr.NewProvider("", httpResp.StatusCode, nil, "HTTP %d: %s", httpResp.StatusCode, string(errBody))
	}
	return httpResp, nil
}

func classifyDoErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return llmkiterr.NewCancelled("request cancelled: %v", err)
	}
	return llmkiterr.NewNetwork(err, "HTTP request failed")
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) PostJSON(ctx context.Context, path string, body, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path}, result)
}

func (c *Client) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}
