package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent and re-run on
// every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id                    TEXT PRIMARY KEY,
		owner_id              TEXT NOT NULL,
		site_url              TEXT NOT NULL,
		progress              TEXT NOT NULL DEFAULT '{}',
		info                  TEXT NOT NULL DEFAULT '{}',
		sitemap_links         TEXT NOT NULL DEFAULT '[]',
		style_prompt          TEXT NOT NULL DEFAULT '',
		style_negative_prompt TEXT NOT NULL DEFAULT '',
		text_style_prompt     TEXT NOT NULL DEFAULT '',
		internal_links        TEXT NOT NULL DEFAULT '[]',
		external_links        TEXT NOT NULL DEFAULT '[]',
		cms                   TEXT,
		publish_frequency     INTEGER NOT NULL DEFAULT 0
		                      CHECK(publish_frequency BETWEEN 0 AND 7),
		content_plan          TEXT NOT NULL DEFAULT '[]',
		version               INTEGER NOT NULL DEFAULT 1,
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,

	`CREATE TABLE IF NOT EXISTS articles (
		id                TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title             TEXT NOT NULL,
		content           TEXT NOT NULL DEFAULT '',
		seo               TEXT NOT NULL DEFAULT '{}',
		status            TEXT NOT NULL DEFAULT 'draft'
		                  CHECK(status IN ('draft','scheduled','published')),
		scheduled_at      TEXT,
		published_url     TEXT NOT NULL DEFAULT '',
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_articles_project ON articles(project_id)`,

	`CREATE TABLE IF NOT EXISTS reference_images (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		data       BLOB NOT NULL,
		mime_type  TEXT NOT NULL DEFAULT 'image/jpeg',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_reference_images_project ON reference_images(project_id)`,
}
