package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCascadeDelete_ProjectToArticlesAndImages verifies that deleting a
// project removes everything attached to it.
func TestCascadeDelete_ProjectToArticlesAndImages(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	projRepo := NewSQLiteProjectRepo(db)
	articleRepo := NewSQLiteArticleRepo(db)
	imageRepo := NewSQLiteImageRepo(db)

	proj := testutil.NewTestProject()
	require.NoError(t, projRepo.Create(ctx, proj))

	article := testutil.NewTestArticle(proj.ID, "Child article")
	require.NoError(t, articleRepo.Create(ctx, article))
	require.NoError(t, imageRepo.Add(ctx, testutil.NewTestImage(proj.ID, []byte("img"))))

	require.NoError(t, projRepo.Delete(ctx, proj.ID))

	_, err := articleRepo.GetByID(ctx, article.ID)
	assert.ErrorIs(t, err, ErrNotFound, "article should be cascade-deleted with its project")

	n, err := imageRepo.CountByProject(ctx, proj.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "images should be cascade-deleted with their project")
}

// TestCascadeDelete_LeavesOtherProjects verifies the cascade is scoped.
func TestCascadeDelete_LeavesOtherProjects(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	projRepo := NewSQLiteProjectRepo(db)
	articleRepo := NewSQLiteArticleRepo(db)

	doomed := testutil.NewTestProject()
	kept := testutil.NewTestProject()
	require.NoError(t, projRepo.Create(ctx, doomed))
	require.NoError(t, projRepo.Create(ctx, kept))
	keptArticle := testutil.NewTestArticle(kept.ID, "Survivor")
	require.NoError(t, articleRepo.Create(ctx, keptArticle))

	require.NoError(t, projRepo.Delete(ctx, doomed.ID))

	_, err := articleRepo.GetByID(ctx, keptArticle.ID)
	assert.NoError(t, err)
}
