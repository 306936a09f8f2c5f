package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/sitepilot/internal/redisstore"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/alexanderramin/sitepilot/internal/session/sessiontest"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	sessiontest.RunStoreContract(t, redisstore.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.NewFromClient(client, redisstore.WithPrefix("custom:app:"))

	require.NoError(t, store.Put(context.Background(), "u1", session.NewAwaitingSiteURL()))
	assert.True(t, mr.Exists("custom:app:session:u1"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.NewFromClient(client, redisstore.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", session.NewInSurvey("p1", 2)))
	mr.FastForward(2 * time.Second)

	s, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, s.IsNone())
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.NewFromClient(client)
	require.NoError(t, mr.Set("sitepilot:session:u1", "{not json"))

	_, err := store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, session.ErrCorrupt)
}

func TestLocker_TryLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redisstore.NewLocker(client, "")
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "project-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("sitepilot:lock:project-1"))

	_, ok, err = locker.TryLock(ctx, "project-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = locker.TryLock(ctx, "project-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other keys are independent")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("sitepilot:lock:project-1"))

	_, ok, err = locker.TryLock(ctx, "project-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocker_UnlockIgnoresForeignToken(t *testing.T) {
	mr, client := newClient(t)
	locker := redisstore.NewLocker(client, "")
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// The lock expires and someone else takes it.
	mr.FastForward(2 * time.Second)
	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("sitepilot:lock:k"), "stale unlock must not release the new holder")
}
