package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Project is one SEO content project owned by a single user. Wizard steps
// fill its business fields one by one and record completion in Progress.
type Project struct {
	ID      string
	OwnerID string
	SiteURL string

	Progress Progress
	Info     Info

	SitemapLinks        []string
	StylePrompt         string
	StyleNegativePrompt string
	TextStylePrompt     string
	InternalLinks       []string
	ExternalLinks       []ExternalLink
	CMS                 *CMSCredentials
	PublishFrequency    int
	ContentPlan         []PlanEntry

	// Version guards single-row updates against concurrent writers.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalLink is an approved outbound link candidate found by web search.
type ExternalLink struct {
	Title   string `json:"title" mapstructure:"title"`
	URL     string `json:"url" mapstructure:"url"`
	Snippet string `json:"snippet,omitempty" mapstructure:"snippet"`
}

// CMSCredentials holds the connection data for the site's CMS.
type CMSCredentials struct {
	Endpoint string `json:"endpoint"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// PlanEntry is one scheduled article in the approved content calendar.
type PlanEntry struct {
	Day      int      `json:"day" mapstructure:"day"`
	Title    string   `json:"title" mapstructure:"title"`
	Keywords []string `json:"keywords,omitempty" mapstructure:"keywords"`
	Intent   string   `json:"intent,omitempty" mapstructure:"intent"`
}

// DisplayName returns the host part of the site URL, falling back to the raw URL.
func (p *Project) DisplayName() string {
	u, err := url.Parse(p.SiteURL)
	if err != nil || u.Host == "" {
		return p.SiteURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// NormalizeSiteURL validates a user-supplied site address and returns it in
// canonical form (scheme + host, no trailing slash). A missing scheme is
// treated as https.
func NormalizeSiteURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("site URL is required")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid site URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("site URL %q must use http or https", raw)
	}
	host := u.Hostname()
	if host == "" || !strings.Contains(host, ".") || strings.ContainsAny(host, " _") {
		return "", fmt.Errorf("site URL %q has no valid host", raw)
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}
