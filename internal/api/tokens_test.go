package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store TokenStore) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	want := Tokens{Access: "a1", Refresh: "r1"}
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, got)
	require.NoError(t, store.Clear(ctx))
}

func TestMemoryTokenStore(t *testing.T) {
	exerciseStore(t, NewMemoryTokenStore(Tokens{}))
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewFileTokenStore(path)
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), Tokens{Access: "a", Refresh: "r"}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ledger:accessToken": "a"`)
	assert.Contains(t, string(raw), `"ledger:refreshToken": "r"`)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisTokenStore(client, "svc:")
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), Tokens{Access: "a", Refresh: "r"}))
	v, err := mr.Get("svc:" + AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(signed(t, now.Add(-time.Second)), now))
	assert.False(t, tokenExpired(signed(t, now.Add(time.Hour)), now))
	assert.False(t, tokenExpired("opaque-token", now))
	assert.False(t, tokenExpired("", now))
}
