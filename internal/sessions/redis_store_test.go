package sessions

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_SetGetTakeDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := NewRedisStore(client, "test:device1:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "loginSource", "web"))
	require.True(t, m.Exists("test:device1:loginSource"))

	v, ok, err := store.Get(ctx, "loginSource")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "web", v)

	v, ok, err = store.Take(ctx, "loginSource")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "web", v)

	_, ok, err = store.Take(ctx, "loginSource")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "authTokens", "{}"))
	require.NoError(t, store.Delete(ctx, "authTokens"))
	require.NoError(t, store.Delete(ctx, "authTokens"))
	_, ok, err = store.Get(ctx, "authTokens")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_ScopedByPrefix(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	a := NewRedisStore(client, "a:")
	b := NewRedisStore(client, "b:")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "authTokens", "for-a"))
	_, ok, err := b.Get(ctx, "authTokens")
	require.NoError(t, err)
	require.False(t, ok)

	// empty prefix falls back to the default namespace
	require.NoError(t, NewRedisStore(client, "").Set(ctx, "k", "v"))
	require.True(t, m.Exists("session:k"))
}
