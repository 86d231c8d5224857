// Package robohash fetches generated avatars from a Robohash compatible
// service and decodes them.
package robohash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultBaseURL is the public Robohash service
	DefaultBaseURL = "https://robohash.org"
	// AboutURL is the page credited in the UI
	AboutURL = "https://robohash.org/"
	// DefaultUserAgent identifies the client to the service
	DefaultUserAgent = "robohashy"
)

// Fetcher resolves and downloads avatars. The pipeline depends on this
// interface so tests can substitute a deterministic fake.
type Fetcher interface {
	// URL returns the address req resolves to.
	URL(req Request) (string, error)
	// Fetch downloads and decodes the avatar for req.
	Fetch(ctx context.Context, req Request) (Image, error)
}

// Client is the HTTP Fetcher. It performs exactly one GET per Fetch and
// never retries.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another Robohash host.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client for DefaultBaseURL unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: http.DefaultClient,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL implements Fetcher.
func (c *Client) URL(req Request) (string, error) {
	u, err := req.URL(c.baseURL)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, req Request) (Image, error) {
	target, err := c.URL(req)
	if err != nil {
		return Image{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "image/*")

	start := time.Now()
	c.logger.Debug("fetching avatar", "url", target)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Image{}, fmt.Errorf("%w: unexpected status %s", ErrRequestFailed, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("%w: error reading response: %w", ErrRequestFailed, err)
	}
	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("%w: body larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	img, err := Decode(data)
	if err != nil {
		return Image{}, err
	}

	c.logger.Debug("fetched avatar",
		"url", target,
		"format", img.Format,
		"size", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"took", time.Since(start))
	return img, nil
}
