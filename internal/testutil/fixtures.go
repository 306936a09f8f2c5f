package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/google/uuid"
)

var testSiteCounter atomic.Int64

// Project options
type ProjectOption func(*domain.Project)

func WithOwner(owner string) ProjectOption {
	return func(p *domain.Project) {
		p.OwnerID = owner
	}
}

func WithSiteURL(u string) ProjectOption {
	return func(p *domain.Project) {
		p.SiteURL = u
	}
}

// WithStepsDone marks the given flags complete.
func WithStepsDone(flags ...string) ProjectOption {
	return func(p *domain.Project) {
		for _, f := range flags {
			p.Progress[f] = true
		}
	}
}

// WithStepsThrough marks step1..stepN complete.
func WithStepsThrough(n int) ProjectOption {
	return func(p *domain.Project) {
		for i := 1; i <= n; i++ {
			p.Progress[domain.FlagName(i)] = true
		}
	}
}

func WithInfo(key string, value any) ProjectOption {
	return func(p *domain.Project) {
		p.Info[key] = value
	}
}

func WithCreatedAt(t time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.CreatedAt = t
		p.UpdatedAt = t
	}
}

// NewTestProject returns a freshly created project: step1 set, nothing else.
func NewTestProject(opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC()
	n := testSiteCounter.Add(1)
	p := &domain.Project{
		ID:        uuid.New().String(),
		OwnerID:   "user-1",
		SiteURL:   fmt.Sprintf("https://site%02d.example.com", n),
		Progress:  domain.Progress{domain.FlagCreated: true},
		Info:      domain.Info{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Article options
type ArticleOption func(*domain.Article)

func WithArticleStatus(s domain.ArticleStatus) ArticleOption {
	return func(a *domain.Article) {
		a.Status = s
	}
}

func WithContent(c string) ArticleOption {
	return func(a *domain.Article) {
		a.Content = c
	}
}

func NewTestArticle(projectID, title string, opts ...ArticleOption) *domain.Article {
	now := time.Now().UTC()
	a := &domain.Article{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     title,
		Content:   "# " + title + "\n\nBody.",
		Status:    domain.ArticleDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func NewTestImage(projectID string, data []byte) *domain.ReferenceImage {
	return &domain.ReferenceImage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Data:      data,
		MimeType:  "image/png",
		CreatedAt: time.Now().UTC(),
	}
}
