package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/sitepilot/internal/db"
	"github.com/alexanderramin/sitepilot/internal/domain"
)

// SQLiteImageRepo stores gallery reference images as blobs.
type SQLiteImageRepo struct {
	db db.DBTX
}

func NewSQLiteImageRepo(database db.DBTX) *SQLiteImageRepo {
	return &SQLiteImageRepo{db: database}
}

func (r *SQLiteImageRepo) Add(ctx context.Context, img *domain.ReferenceImage) error {
	if img.MimeType == "" {
		img.MimeType = "image/jpeg"
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reference_images (id, project_id, data, mime_type, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		img.ID, img.ProjectID, img.Data, img.MimeType, img.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting reference image: %w", err)
	}
	return nil
}

// ListByProject returns images in upload order. A limit <= 0 returns all.
func (r *SQLiteImageRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.ReferenceImage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, data, mime_type, created_at
		 FROM reference_images WHERE project_id = ?
		 ORDER BY rowid LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reference images: %w", err)
	}
	defer rows.Close()

	var images []*domain.ReferenceImage
	for rows.Next() {
		var img domain.ReferenceImage
		var createdAt string
		if err := rows.Scan(&img.ID, &img.ProjectID, &img.Data, &img.MimeType, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reference image: %w", err)
		}
		img.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		images = append(images, &img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reference images: %w", err)
	}
	return images, nil
}

func (r *SQLiteImageRepo) CountByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reference_images WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting reference images: %w", err)
	}
	return n, nil
}
