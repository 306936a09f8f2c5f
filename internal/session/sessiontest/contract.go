// Package sessiontest holds checks shared by session.Store implementations.
package sessiontest

import (
	"context"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises the behaviour every session.Store must share.
func RunStoreContract(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown user is None", func(t *testing.T) {
		s, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.True(t, s.IsNone())
	})

	t.Run("put get clear", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "u1", session.NewInSurvey("p1", 3)))
		s, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, session.InSurvey, s.Kind)
		assert.Equal(t, "p1", s.ProjectID)
		assert.Equal(t, 3, s.Question)

		require.NoError(t, store.Clear(ctx, "u1"))
		s, err = store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, s.IsNone())
	})

	t.Run("cms form values survive", func(t *testing.T) {
		vals := map[string]string{session.FieldEndpoint: "https://a.example.com"}
		require.NoError(t, store.Put(ctx, "u2", session.NewInCMSForm("p2", session.FieldLogin, vals)))
		s, err := store.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, session.FieldLogin, s.Field)
		assert.Equal(t, "https://a.example.com", s.Values[session.FieldEndpoint])
	})

	t.Run("users are isolated", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a", session.NewAwaitingSiteURL()))
		require.NoError(t, store.Put(ctx, "b", session.NewAwaitingUpload("p3")))
		require.NoError(t, store.Clear(ctx, "a"))
		s, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, session.AwaitingUpload, s.Kind)
	})

	t.Run("putting None clears", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "c", session.NewInCompetitorLoop("p4")))
		require.NoError(t, store.Put(ctx, "c", session.State{}))
		s, err := store.Get(ctx, "c")
		require.NoError(t, err)
		assert.True(t, s.IsNone())
	})
}
