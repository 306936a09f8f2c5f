package siteintel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

// wellKnownSitemaps are tried in order after robots.txt.
var wellKnownSitemaps = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap-index.xml",
	"/sitemap1.xml",
}

const (
	maxSitemapFiles = 25
	maxSitemapDepth = 3
)

type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// DiscoverPages returns the content pages of a site. Sitemaps announced in
// robots.txt and at well-known paths are read first; if none yields a page
// that survives FilterContentURLs, the homepage's same-site links are used
// instead.
func (c *Client) DiscoverPages(ctx context.Context, siteURL string) ([]string, error) {
	base := strings.TrimRight(siteURL, "/")

	candidates := c.robotsSitemaps(ctx, base)
	for _, p := range wellKnownSitemaps {
		candidates = append(candidates, base+p)
	}

	var pages []string
	seen := make(map[string]bool)
	budget := maxSitemapFiles
	for _, sm := range candidates {
		if seen[sm] {
			continue
		}
		pages = FilterContentURLs(siteURL, c.readSitemap(ctx, sm, 0, seen, &budget))
		if len(pages) > 0 {
			break
		}
	}

	if len(pages) > 0 {
		c.log.Debug("sitemap_found", "site", siteURL, "pages", len(pages))
		return pages, nil
	}

	c.log.Debug("sitemap_missing_crawling", "site", siteURL)
	links, err := c.crawlHomepage(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("discovering pages of %s: %w", siteURL, err)
	}
	return FilterContentURLs(siteURL, links), nil
}

// robotsSitemaps returns the Sitemap: entries of robots.txt, if any.
func (c *Client) robotsSitemaps(ctx context.Context, base string) []string {
	body, err := c.fetch(ctx, base+"/robots.txt")
	if err != nil {
		return nil
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, val, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if v := strings.TrimSpace(val); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// readSitemap fetches one sitemap and follows nested sitemap indexes.
// Fetch and parse failures yield no pages.
func (c *Client) readSitemap(ctx context.Context, u string, depth int, seen map[string]bool, budget *int) []string {
	if depth >= maxSitemapDepth || *budget <= 0 || seen[u] {
		return nil
	}
	seen[u] = true
	*budget--

	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil
	}
	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		c.log.Debug("sitemap_parse_failed", "url", u, "err", err)
		return nil
	}

	var pages []string
	for _, loc := range doc.URLs {
		if l := strings.TrimSpace(loc.Loc); l != "" {
			pages = append(pages, l)
		}
	}
	for _, child := range doc.Sitemaps {
		if l := strings.TrimSpace(child.Loc); l != "" {
			pages = append(pages, c.readSitemap(ctx, l, depth+1, seen, budget)...)
		}
	}
	return pages
}
