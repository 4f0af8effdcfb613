package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portal-api/internal/testutil"
)

func TestLocalStore(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewLocalStore(client)
	ctx := context.Background()

	// Missing key reports absence, not an error.
	_, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "token", "tok-abc"))
	val, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-abc", val)

	// Overwrite.
	require.NoError(t, store.Set(ctx, "token", "tok-def"))
	val, _, err = store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "tok-def", val)

	require.NoError(t, store.Remove(ctx, "token"))
	_, ok, err = store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is fine.
	require.NoError(t, store.Remove(ctx, "token"))
}

func TestLocalStore_PrefixIsolation(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	a := NewLocalStoreWithPrefix(client, "a:")
	b := NewLocalStoreWithPrefix(client, "b:")

	require.NoError(t, a.Set(ctx, "profile", "alice"))
	_, ok, err := b.Get(ctx, "profile")
	require.NoError(t, err)
	assert.False(t, ok)
}
