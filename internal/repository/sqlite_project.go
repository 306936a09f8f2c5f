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

// SQLiteProjectRepo implements ProjectRepo using a SQLite database.
type SQLiteProjectRepo struct {
	db  db.DBTX
	uow db.UnitOfWork // nil when the repo is already bound to a transaction
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(database *sql.DB) *SQLiteProjectRepo {
	return NewSQLiteProjectRepoWithUoW(database, db.NewSQLiteUnitOfWork(database))
}

// NewSQLiteProjectRepoWithUoW runs multi-statement writes through uow.
func NewSQLiteProjectRepoWithUoW(database *sql.DB, uow db.UnitOfWork) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: database, uow: uow}
}

// NewSQLiteProjectRepoTx binds a repo to an open transaction.
func NewSQLiteProjectRepoTx(tx db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: tx}
}

const projectColumns = `id, owner_id, site_url, progress, info, sitemap_links,
	style_prompt, style_negative_prompt, text_style_prompt, internal_links, external_links,
	cms, publish_frequency, content_plan, version, created_at, updated_at`

// projectRow carries the encoded column values of a project.
type projectRow struct {
	progress, info, sitemap, internal, external, plan string
	cms                                               any
}

func encodeProject(p *domain.Project) (*projectRow, error) {
	var row projectRow
	var err error
	if row.progress, err = toJSON(p.Progress, "{}"); err != nil {
		return nil, fmt.Errorf("encoding progress: %w", err)
	}
	if row.info, err = toJSON(p.Info, "{}"); err != nil {
		return nil, fmt.Errorf("encoding info: %w", err)
	}
	if row.sitemap, err = toJSON(p.SitemapLinks, "[]"); err != nil {
		return nil, fmt.Errorf("encoding sitemap_links: %w", err)
	}
	if row.internal, err = toJSON(p.InternalLinks, "[]"); err != nil {
		return nil, fmt.Errorf("encoding internal_links: %w", err)
	}
	if row.external, err = toJSON(p.ExternalLinks, "[]"); err != nil {
		return nil, fmt.Errorf("encoding external_links: %w", err)
	}
	if row.plan, err = toJSON(p.ContentPlan, "[]"); err != nil {
		return nil, fmt.Errorf("encoding content_plan: %w", err)
	}
	if p.CMS != nil {
		cms, err := toJSON(p.CMS, "{}")
		if err != nil {
			return nil, fmt.Errorf("encoding cms: %w", err)
		}
		row.cms = cms
	}
	return &row, nil
}

func (r *SQLiteProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if p.Progress == nil {
		p.Progress = domain.Progress{}
	}
	if p.Info == nil {
		p.Info = domain.Info{}
	}
	if p.Version == 0 {
		p.Version = 1
	}
	row, err := encodeProject(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.SiteURL,
		row.progress, row.info, row.sitemap,
		p.StylePrompt, p.StyleNegativePrompt, p.TextStylePrompt,
		row.internal, row.external, row.cms,
		p.PublishFrequency, row.plan, p.Version,
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (r *SQLiteProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

func (r *SQLiteProjectRepo) Save(ctx context.Context, p *domain.Project) error {
	return r.inTx(ctx, func(ctx context.Context, tx *SQLiteProjectRepo) error {
		return tx.save(ctx, p)
	})
}

func (r *SQLiteProjectRepo) save(ctx context.Context, p *domain.Project) error {
	var storedProgress string
	var storedVersion int
	err := r.db.QueryRowContext(ctx, `SELECT progress, version FROM projects WHERE id = ?`, p.ID).
		Scan(&storedProgress, &storedVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading project version: %w", err)
	}
	if storedVersion != p.Version {
		return fmt.Errorf("saving project %s (have v%d, stored v%d): %w", p.ID, p.Version, storedVersion, ErrConflict)
	}

	var persisted domain.Progress
	if err := fromJSON("progress", storedProgress, &persisted); err != nil {
		return err
	}
	if p.Progress == nil {
		p.Progress = domain.Progress{}
	}
	p.Progress.Merge(persisted)

	row, err := encodeProject(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := `UPDATE projects SET site_url = ?, progress = ?, info = ?, sitemap_links = ?,
		style_prompt = ?, style_negative_prompt = ?, text_style_prompt = ?,
		internal_links = ?, external_links = ?, cms = ?, publish_frequency = ?,
		content_plan = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.SiteURL, row.progress, row.info, row.sitemap,
		p.StylePrompt, p.StyleNegativePrompt, p.TextStylePrompt,
		row.internal, row.external, row.cms, p.PublishFrequency,
		row.plan, now.Format(time.RFC3339),
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("saving project %s: %w", p.ID, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *SQLiteProjectRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteProjectRepo) MergeInfo(ctx context.Context, id, key string, value any) error {
	return r.inTx(ctx, func(ctx context.Context, tx *SQLiteProjectRepo) error {
		p, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.Info[key] = value
		return tx.save(ctx, p)
	})
}

// inTx runs fn against a transaction-bound repo, or directly when r is
// already bound to one.
func (r *SQLiteProjectRepo) inTx(ctx context.Context, fn func(ctx context.Context, tx *SQLiteProjectRepo) error) error {
	if r.uow == nil {
		return fn(ctx, r)
	}
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, NewSQLiteProjectRepoTx(tx))
	})
}

func scanProject(s rowScanner) (*domain.Project, error) {
	var p domain.Project
	var progress, info, sitemap, internal, external, plan string
	var cms sql.NullString
	var createdAtStr, updatedAtStr string

	err := s.Scan(
		&p.ID, &p.OwnerID, &p.SiteURL, &progress, &info, &sitemap,
		&p.StylePrompt, &p.StyleNegativePrompt, &p.TextStylePrompt,
		&internal, &external, &cms, &p.PublishFrequency, &plan,
		&p.Version, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.Progress = domain.Progress{}
	p.Info = domain.Info{}
	for _, col := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"progress", progress, &p.Progress},
		{"info", info, &p.Info},
		{"sitemap_links", sitemap, &p.SitemapLinks},
		{"internal_links", internal, &p.InternalLinks},
		{"external_links", external, &p.ExternalLinks},
		{"content_plan", plan, &p.ContentPlan},
	} {
		if err := fromJSON(col.name, col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	if cms.Valid {
		p.CMS = &domain.CMSCredentials{}
		if err := fromJSON("cms", cms.String, p.CMS); err != nil {
			return nil, err
		}
	}

	var parseErr error
	p.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	p.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &p, nil
}
