package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected exec failure")

func TestRollback_SaveLeavesRowAndVersion(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	plain := NewSQLiteProjectRepo(database)

	p := testutil.NewTestProject(testutil.WithSiteURL("https://bakery.example.com"))
	require.NoError(t, plain.Create(ctx, p))

	faulty := &testutil.FaultyUoW{DB: database, FailOn: 1, Match: "UPDATE projects", Err: errInjected}
	failing := NewSQLiteProjectRepoWithUoW(database, faulty)
	p.StylePrompt = "watercolor"
	p.Progress.Mark(domain.FlagScan)

	err := failing.Save(ctx, p)
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, 1, faulty.Writes())
	assert.Equal(t, 1, p.Version)

	stored, err := plain.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.StylePrompt)
	assert.False(t, stored.Progress.Done(domain.FlagScan))
	assert.Equal(t, 1, stored.Version)

	// The caller's copy is still current, so a retry succeeds.
	require.NoError(t, plain.Save(ctx, p))
	assert.Equal(t, 2, p.Version)
}

func TestRollback_MergeInfo(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	plain := NewSQLiteProjectRepo(database)

	p := testutil.NewTestProject()
	require.NoError(t, plain.Create(ctx, p))

	failing := NewSQLiteProjectRepoWithUoW(database, &testutil.FaultyUoW{DB: database, FailOn: 1, Err: errInjected})
	require.ErrorIs(t, failing.MergeInfo(ctx, p.ID, "niche", "bakery"), errInjected)

	stored, err := plain.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Info, "niche")
	assert.Equal(t, 1, stored.Version)
}
