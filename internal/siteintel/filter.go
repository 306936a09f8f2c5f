package siteintel

import (
	"net/url"
	"path"
	"strings"
)

var skippedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
	".ico": true, ".bmp": true, ".pdf": true, ".zip": true, ".rar": true, ".gz": true,
	".css": true, ".js": true, ".json": true, ".xml": true, ".txt": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".woff": true, ".woff2": true,
}

var skippedPathParts = []string{
	"/wp-admin", "/wp-login", "/wp-json", "/wp-content/", "/wp-includes/",
	"/admin", "/login", "/logout", "/register", "/cart", "/checkout", "/my-account",
	"/feed", "/rss", "/xmlrpc", "/cgi-bin", "/tag/", "/author/", "/search",
}

// FilterContentURLs keeps the same-site content pages of urls: fragments
// are dropped, hosts compared without "www.", media files, admin and feed
// paths and sitemap files removed, and duplicates collapsed in first-seen
// order.
func FilterContentURLs(siteURL string, urls []string) []string {
	site, err := url.Parse(siteURL)
	if err != nil {
		return nil
	}
	siteHost := bareHost(site.Hostname())

	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if bareHost(u.Hostname()) != siteHost {
			continue
		}
		if !isContentPath(u) {
			continue
		}
		u.Fragment = ""
		key := canonicalKey(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u.String())
	}
	return out
}

func isContentPath(u *url.URL) bool {
	p := strings.ToLower(u.Path)
	if skippedExtensions[path.Ext(p)] {
		return false
	}
	if strings.Contains(p, "sitemap") {
		return false
	}
	for _, part := range skippedPathParts {
		if matchesPathPart(p, part) {
			return false
		}
	}
	q := u.Query()
	if q.Has("replytocom") || q.Has("s") || q.Has("add-to-cart") {
		return false
	}
	return true
}

// matchesPathPart reports whether part occurs in p as a whole segment.
// Parts ending in "/" match as directory prefixes anywhere in the path.
func matchesPathPart(p, part string) bool {
	if strings.HasSuffix(part, "/") {
		return strings.Contains(p, part)
	}
	for i := strings.Index(p, part); i >= 0; {
		end := i + len(part)
		if end == len(p) || p[end] == '/' || p[end] == '.' {
			return true
		}
		next := strings.Index(p[end:], part)
		if next < 0 {
			break
		}
		i = end + next
	}
	return false
}

// canonicalKey ignores scheme, www and a trailing slash for deduplication.
func canonicalKey(u *url.URL) string {
	p := strings.TrimRight(u.Path, "/")
	key := bareHost(u.Hostname()) + p
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return strings.ToLower(key)
}

func bareHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}
