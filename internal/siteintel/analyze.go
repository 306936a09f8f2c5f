package siteintel

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const maxSummaryText = 3000

// PageAnalysis is the extracted outline of one web page.
type PageAnalysis struct {
	URL         string
	Title       string
	Description string
	Headings    []string
	Text        string
	Links       []string
}

// Summary renders the analysis as plain text for a language model prompt.
func (p *PageAnalysis) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", p.URL)
	if p.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	if len(p.Headings) > 0 {
		b.WriteString("Headings:\n")
		for _, h := range p.Headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if p.Text != "" {
		fmt.Fprintf(&b, "Text: %s\n", p.Text)
	}
	return b.String()
}

// AnalyzePage fetches a page and returns a text summary plus its links.
func (c *Client) AnalyzePage(ctx context.Context, pageURL string) (string, []string, error) {
	a, err := c.Analyze(ctx, pageURL)
	if err != nil {
		return "", nil, err
	}
	return a.Summary(), a.Links, nil
}

// Analyze fetches and parses a page.
func (c *Client) Analyze(ctx context.Context, pageURL string) (*PageAnalysis, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid page url %q", pageURL)
	}
	body, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	a := &PageAnalysis{URL: pageURL}
	var bodyNode *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if a.Title == "" {
					a.Title = textContent(n)
				}
			case "meta":
				if strings.EqualFold(attr(n, "name"), "description") && a.Description == "" {
					a.Description = strings.TrimSpace(attr(n, "content"))
				}
			case "h1", "h2", "h3":
				if h := textContent(n); h != "" {
					a.Headings = append(a.Headings, h)
				}
			case "body":
				bodyNode = n
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	if bodyNode != nil {
		a.Text = truncate(textContent(bodyNode), maxSummaryText)
	}
	a.Links = FilterContentURLs(pageURL, collectLinks(doc, base))
	return a, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
