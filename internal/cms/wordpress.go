// Package cms talks to the site's content management system. WordPress is
// reached through its REST API with an application password.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/yuin/goldmark"
)

var (
	// ErrUnauthorized means the CMS rejected the login or password.
	ErrUnauthorized = errors.New("cms rejected credentials")

	// ErrNoAPI means the endpoint did not answer like a WordPress REST API.
	ErrNoAPI = errors.New("cms api not found")
)

// Post is what gets published.
type Post struct {
	Title       string
	Markdown    string
	Excerpt     string
	Slug        string
	ScheduledAt *time.Time
}

// Published describes the created post.
type Published struct {
	ID   int64
	Link string
}

// WordPress is a minimal WordPress REST client.
type WordPress struct {
	http *http.Client
}

func NewWordPress(h *http.Client) *WordPress {
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	return &WordPress{http: h}
}

// NormalizeEndpoint returns the site root for creds.Endpoint, accepting
// bare hosts and URLs that already include /wp-json or /wp-admin.
func NormalizeEndpoint(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("cms endpoint is required")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid cms endpoint %q", raw)
	}
	p := u.Path
	for _, marker := range []string{"/wp-json", "/wp-admin", "/wp-login.php"} {
		if i := strings.Index(p, marker); i >= 0 {
			p = p[:i]
		}
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(p, "/"), nil
}

// Verify checks that the credentials can authenticate against the API.
func (w *WordPress) Verify(ctx context.Context, creds domain.CMSCredentials) error {
	var me struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	return w.do(ctx, creds, http.MethodGet, "/wp-json/wp/v2/users/me?context=edit", nil, &me)
}

// Publish renders the markdown to HTML and creates the post. Posts with a
// future ScheduledAt are created with status "future".
func (w *WordPress) Publish(ctx context.Context, creds domain.CMSCredentials, post Post) (*Published, error) {
	content, err := RenderMarkdown(post.Markdown)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"title":   post.Title,
		"content": content,
		"status":  "publish",
	}
	if post.Excerpt != "" {
		body["excerpt"] = post.Excerpt
	}
	if post.Slug != "" {
		body["slug"] = post.Slug
	}
	if post.ScheduledAt != nil && post.ScheduledAt.After(time.Now()) {
		body["status"] = "future"
		body["date_gmt"] = post.ScheduledAt.UTC().Format("2006-01-02T15:04:05")
	}

	var created struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := w.do(ctx, creds, http.MethodPost, "/wp-json/wp/v2/posts", body, &created); err != nil {
		return nil, err
	}
	return &Published{ID: created.ID, Link: created.Link}, nil
}

// RenderMarkdown converts article markdown into HTML.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

func (w *WordPress) do(ctx context.Context, creds domain.CMSCredentials, method, path string, in, out any) error {
	root, err := NormalizeEndpoint(creds.Endpoint)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, root+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(creds.Login, strings.ReplaceAll(creds.Password, " ", ""))
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling cms: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading cms response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(data))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w at %s", ErrNoAPI, root)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("cms returned status %d: %s", resp.StatusCode, apiMessage(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrNoAPI, err)
		}
	}
	return nil
}

// apiMessage extracts the "message" field of a WordPress error body.
func apiMessage(data []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
