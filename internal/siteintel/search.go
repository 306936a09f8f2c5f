package siteintel

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"golang.org/x/net/html"
)

// MaxSearchResults caps a single SearchWeb call.
const MaxSearchResults = 10

// blockedHosts never make useful outbound references.
var blockedHosts = []string{
	"pinterest.", "facebook.com", "instagram.com", "tiktok.com", "twitter.com", "x.com",
	"vk.com", "ok.ru", "youtube.com", "linkedin.com", "reddit.com", "quora.com",
	"amazon.", "ebay.", "aliexpress.", "duckduckgo.com",
}

var spamWords = []string{
	"casino", "betting", "porn", "xxx", "viagra", "loan", "crypto signal", "escort", "bookmaker",
}

// SearchWeb queries DuckDuckGo and returns up to maxResults filtered results.
func (c *Client) SearchWeb(ctx context.Context, query string, maxResults int) ([]domain.ExternalLink, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if maxResults <= 0 || maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	params := url.Values{"q": {query}}
	if c.region != "" {
		params.Set("kl", c.region)
	}
	body, err := c.fetch(ctx, c.searchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	raw, err := parseSearchResults(body)
	if err != nil {
		return nil, err
	}

	results := FilterSearchResults(raw, c.lang, maxResults)
	c.log.Debug("web_search", "query", query, "raw", len(raw), "kept", len(results))
	return results, nil
}

// FilterSearchResults drops blocked hosts, spam and results not written in
// lang (any language when lang is empty), keeps one result per host and
// stops at max.
func FilterSearchResults(in []domain.ExternalLink, lang string, max int) []domain.ExternalLink {
	out := make([]domain.ExternalLink, 0, max)
	hosts := make(map[string]bool)
	for _, r := range in {
		if len(out) >= max {
			break
		}
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		host := bareHost(u.Hostname())
		if hosts[host] || isBlockedHost(host) {
			continue
		}
		text := strings.ToLower(r.Title + " " + r.Snippet)
		if containsAny(text, spamWords) {
			continue
		}
		if !matchesLanguage(r.Title+" "+r.Snippet, lang) {
			continue
		}
		hosts[host] = true
		out = append(out, r)
	}
	return out
}

func isBlockedHost(host string) bool {
	for _, b := range blockedHosts {
		if strings.HasSuffix(b, ".") {
			if strings.HasPrefix(host, b) || strings.Contains(host, "."+b) {
				return true
			}
			continue
		}
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var langScripts = map[string]*unicode.RangeTable{
	"ru": unicode.Cyrillic, "uk": unicode.Cyrillic, "be": unicode.Cyrillic, "bg": unicode.Cyrillic,
	"en": unicode.Latin, "de": unicode.Latin, "fr": unicode.Latin, "es": unicode.Latin,
	"it": unicode.Latin, "pt": unicode.Latin, "nl": unicode.Latin, "pl": unicode.Latin,
}

// matchesLanguage reports whether at least half of the letters in s belong
// to the script of lang. Unknown languages and letterless text match.
func matchesLanguage(s, lang string) bool {
	script, ok := langScripts[strings.ToLower(lang)]
	if !ok {
		return true
	}
	letters, inScript := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(script, r) {
			inScript++
		}
	}
	return letters == 0 || inScript*2 >= letters
}

func parseSearchResults(body []byte) ([]domain.ExternalLink, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	var results []domain.ExternalLink
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r := extractResult(n); r.URL != "" && r.Title != "" {
				results = append(results, r)
			}
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			find(ch)
		}
	}
	find(doc)
	return results, nil
}

func extractResult(n *html.Node) domain.ExternalLink {
	var r domain.ExternalLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				r.URL = unwrapRedirect(attr(n, "href"))
				r.Title = textContent(n)
			case hasClass(n, "result__snippet"):
				r.Snippet = textContent(n)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return r
}

// unwrapRedirect extracts the target of a DuckDuckGo "/l/?uddg=" link.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "/l/?") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
