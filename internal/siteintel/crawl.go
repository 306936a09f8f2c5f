package siteintel

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// crawlHomepage returns every hyperlink on the homepage, resolved against it.
func (c *Client) crawlHomepage(ctx context.Context, base string) ([]string, error) {
	body, err := c.fetch(ctx, base+"/")
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing homepage: %w", err)
	}
	baseURL, err := url.Parse(base + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	return collectLinks(doc, baseURL), nil
}

// collectLinks resolves every <a href> under n against base.
func collectLinks(n *html.Node, base *url.URL) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := strings.TrimSpace(attr(n, "href"))
			if href != "" && !strings.HasPrefix(href, "#") &&
				!strings.HasPrefix(href, "mailto:") && !strings.HasPrefix(href, "tel:") &&
				!strings.HasPrefix(href, "javascript:") {
				if ref, err := url.Parse(href); err == nil {
					out = append(out, base.ResolveReference(ref).String())
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent joins the trimmed text nodes under n with single spaces.
func textContent(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
