package repository

import (
	"context"

	"github.com/alexanderramin/sitepilot/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Project, error)
	// Save writes every mutable field in one statement. It fails with
	// ErrConflict when p.Version is stale and never clears a set flag.
	Save(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
	// MergeInfo sets a single info key, leaving the other keys untouched.
	MergeInfo(ctx context.Context, id, key string, value any) error
}

type ArticleRepo interface {
	Create(ctx context.Context, a *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Article, error)
	Update(ctx context.Context, a *domain.Article) error
}

type ImageRepo interface {
	Add(ctx context.Context, img *domain.ReferenceImage) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.ReferenceImage, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
}
