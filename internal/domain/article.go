package domain

import "time"

type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticleScheduled ArticleStatus = "scheduled"
	ArticlePublished ArticleStatus = "published"
)

// SEOMeta is the structured search metadata generated alongside an article.
type SEOMeta struct {
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords,omitempty"`
	Slug            string   `json:"slug,omitempty"`
}

type Article struct {
	ID           string
	ProjectID    string
	Title        string
	Content      string
	SEO          SEOMeta
	Status       ArticleStatus
	ScheduledAt  *time.Time
	PublishedURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReferenceImage is one style reference uploaded during the gallery step.
type ReferenceImage struct {
	ID        string
	ProjectID string
	Data      []byte
	MimeType  string
	CreatedAt time.Time
}
