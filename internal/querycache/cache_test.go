package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute, nil), mr
}

func TestFetchJSONMemoises(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	var calls int
	loader := func(context.Context) (any, error) {
		calls++
		return []row{{Name: "Juan", Count: calls}}, nil
	}

	key, err := cache.BuildKey(ctx, []Namespace{Customers}, "customers", "list")
	require.NoError(t, err)

	var first, second []row
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestInvalidateOrphansDependentKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	salesKey, err := cache.BuildKey(ctx, []Namespace{Sales, Customers}, "dashboard", "month")
	require.NoError(t, err)
	settingsKey, err := cache.BuildKey(ctx, []Namespace{Settings}, "settings")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, Customers))

	salesAfter, err := cache.BuildKey(ctx, []Namespace{Sales, Customers}, "dashboard", "month")
	require.NoError(t, err)
	settingsAfter, err := cache.BuildKey(ctx, []Namespace{Settings}, "settings")
	require.NoError(t, err)

	assert.NotEqual(t, salesKey, salesAfter)
	assert.Equal(t, settingsKey, settingsAfter)

	ver, err := cache.Version(ctx, Customers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestFetchJSONEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	var calls int
	loader := func(context.Context) (any, error) {
		calls++
		return row{Name: "x"}, nil
	}
	var dest row
	require.NoError(t, cache.FetchJSON(ctx, "k", &dest, loader))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, cache.FetchJSON(ctx, "k", &dest, loader))
	assert.Equal(t, 2, calls)
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	cache, mr := newTestCache(t)
	boom := errors.New("backend down")
	var dest row
	err := cache.FetchJSON(context.Background(), "k", &dest, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))

	assert.Error(t, cache.FetchJSON(context.Background(), "k", &dest, nil))
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	key, err := cache.BuildKey(ctx, []Namespace{Sales}, "sales", "list")
	require.NoError(t, err)
	assert.Equal(t, "sales:list", key)

	var dest row
	require.NoError(t, cache.FetchJSON(ctx, key, &dest, func(context.Context) (any, error) {
		return row{Name: "direct", Count: 3}, nil
	}))
	assert.Equal(t, row{Name: "direct", Count: 3}, dest)
	assert.NoError(t, cache.Invalidate(ctx, Sales))
	assert.NoError(t, cache.Listen(ctx, nil))
}

func TestListenFollowsRemoteBumps(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen atomic.Int64
	require.NoError(t, cache.Listen(ctx, func(ns Namespace, ver int64) {
		if ns == Payments {
			seen.Store(ver)
		}
	}))

	mr.Publish(BumpChannel, "payments=7")
	mr.Publish(BumpChannel, "garbage")

	assert.Eventually(t, func() bool { return seen.Load() == 7 }, time.Second, 10*time.Millisecond)
	ver, err := cache.Version(ctx, Payments)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ver)
}

func TestParseBump(t *testing.T) {
	ns, ver, ok := parseBump("debts=3")
	assert.True(t, ok)
	assert.Equal(t, Debts, ns)
	assert.Equal(t, int64(3), ver)

	_, _, ok = parseBump("=3")
	assert.False(t, ok)
	_, _, ok = parseBump("debts=x")
	assert.False(t, ok)
}
