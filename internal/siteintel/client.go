// Package siteintel fetches and inspects websites: sitemap discovery with a
// crawl fallback, single-page analysis and filtered web search.
package siteintel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; sitepilot/1.0; +https://github.com/alexanderramin/sitepilot)"
	defaultSearchURL = "https://html.duckduckgo.com/html/"
	maxBodyBytes     = 5 << 20
)

// Client is the site intelligence collaborator used by the wizard.
type Client struct {
	http      *http.Client
	log       *slog.Logger
	userAgent string
	searchURL string
	region    string
	lang      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSearchURL points web search at another DuckDuckGo-compatible endpoint.
func WithSearchURL(u string) Option {
	return func(c *Client) { c.searchURL = u }
}

// WithSearchLocale biases search results toward a region (e.g. "us-en")
// and keeps only results written in lang (e.g. "en", "ru").
func WithSearchLocale(region, lang string) Option {
	return func(c *Client) {
		c.region = region
		c.lang = lang
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 20 * time.Second},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		userAgent: defaultUserAgent,
		searchURL: defaultSearchURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetch GETs u and returns the body. Non-2xx statuses are errors.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return body, nil
}
