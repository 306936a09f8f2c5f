package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/sitepilot/internal/db"
	"github.com/alexanderramin/sitepilot/internal/domain"
)

// SQLiteArticleRepo implements ArticleRepo using a SQLite database.
type SQLiteArticleRepo struct {
	db db.DBTX
}

// NewSQLiteArticleRepo creates a new SQLiteArticleRepo.
func NewSQLiteArticleRepo(database db.DBTX) *SQLiteArticleRepo {
	return &SQLiteArticleRepo{db: database}
}

const articleColumns = `id, project_id, title, content, seo, status, scheduled_at,
	published_url, created_at, updated_at`

func (r *SQLiteArticleRepo) Create(ctx context.Context, a *domain.Article) error {
	if a.Status == "" {
		a.Status = domain.ArticleDraft
	}
	seo, err := toJSON(a.SEO, "{}")
	if err != nil {
		return fmt.Errorf("encoding seo: %w", err)
	}
	query := `INSERT INTO articles (` + articleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.ProjectID, a.Title, a.Content, seo, string(a.Status),
		nullableTimeToString(a.ScheduledAt, time.RFC3339),
		a.PublishedURL,
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting article: %w", err)
	}
	return nil
}

func (r *SQLiteArticleRepo) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`
	a, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return a, err
}

func (r *SQLiteArticleRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE project_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var articles []*domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}
	return articles, nil
}

func (r *SQLiteArticleRepo) Update(ctx context.Context, a *domain.Article) error {
	seo, err := toJSON(a.SEO, "{}")
	if err != nil {
		return fmt.Errorf("encoding seo: %w", err)
	}
	a.UpdatedAt = time.Now().UTC()
	query := `UPDATE articles SET title = ?, content = ?, seo = ?, status = ?,
		scheduled_at = ?, published_url = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.Title, a.Content, seo, string(a.Status),
		nullableTimeToString(a.ScheduledAt, time.RFC3339),
		a.PublishedURL, a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

func scanArticle(s rowScanner) (*domain.Article, error) {
	var a domain.Article
	var seo, status string
	var scheduledAt sql.NullString
	var createdAtStr, updatedAtStr string

	err := s.Scan(&a.ID, &a.ProjectID, &a.Title, &a.Content, &seo, &status,
		&scheduledAt, &a.PublishedURL, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning article: %w", err)
	}
	if err := fromJSON("seo", seo, &a.SEO); err != nil {
		return nil, err
	}
	a.Status = domain.ArticleStatus(status)
	a.ScheduledAt = parseNullableTime(scheduledAt, time.RFC3339)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
	return &a, nil
}
