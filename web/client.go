package web

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joinframework/join/data"
)

const DefaultRequestTimeout = 15 * time.Second

// ClientConfig contains configuration options for a web client.
type ClientConfig struct {
	// BaseURL is prepended to request paths, e.g. "https://api.example.com".
	BaseURL string
	// Timeout bounds a complete request. Default is 15s.
	Timeout time.Duration
	// TLSConfig customizes HTTPS transport settings.
	TLSConfig *tls.Config
	// Codec encodes request and decodes response bodies. Default is JSON.
	Codec data.Codec
}

// Client is an HTTP client with codec-aware request helpers.
type Client struct {
	http   *http.Client
	config *ClientConfig
}

// NewClient creates a web client. A nil config selects defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRequestTimeout
	}
	if config.Codec == nil {
		config.Codec = data.JSONCodec{}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.TLSConfig != nil {
		transport.TLSClientConfig = config.TLSConfig
	}

	return &Client{
		http: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		config: config,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Get performs a GET request and decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with in as the encoded body and decodes
// the response body into out. Either may be nil.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

// Put performs a PUT request with in as the encoded body and decodes the
// response body into out. Either may be nil.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	url := path
	if c.config.BaseURL != "" {
		url = strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	var body io.Reader
	if in != nil {
		encoded, err := c.config.Codec.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", c.config.Codec.ContentType())
	}
	req.Header.Set("Accept", c.config.Codec.ContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: respBody}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	return c.config.Codec.Unmarshal(respBody, out)
}
