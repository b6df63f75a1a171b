package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContextStore(t *testing.T, ttl time.Duration) (*ContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewContextStore(client, ttl), mr
}

func TestContextStoreRoundTrip(t *testing.T) {
	store, _ := newTestContextStore(t, time.Hour)
	ctx := context.Background()

	switched := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, ActiveContext{PrincipalID: 42, RoleName: RoleFacilitator, SwitchedAt: switched}))

	active, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(42), active.PrincipalID)
	assert.Equal(t, RoleFacilitator, active.RoleName)
	assert.True(t, active.SwitchedAt.Equal(switched))
}

func TestContextStoreGetMissingReturnsNil(t *testing.T) {
	store, _ := newTestContextStore(t, time.Hour)

	active, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestContextStoreClear(t *testing.T) {
	store, _ := newTestContextStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ActiveContext{PrincipalID: 42, RoleName: RoleMember, SwitchedAt: time.Now()}))
	require.NoError(t, store.Clear(ctx, 42))

	active, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, active)

	// Clearing an absent context is fine.
	require.NoError(t, store.Clear(ctx, 42))
}

func TestContextStoreExpires(t *testing.T) {
	store, mr := newTestContextStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ActiveContext{PrincipalID: 42, RoleName: RoleMember, SwitchedAt: time.Now()}))
	mr.FastForward(2 * time.Minute)

	active, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, active)
}
