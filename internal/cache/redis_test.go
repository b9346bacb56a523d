package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/materials-api/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, CourseKey(1), expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, CourseKey(1), &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestRefreshStore(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.StoreRefresh(ctx, "jti-1", 42, time.Hour))

	owner, ok, err := cache.RefreshOwner(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), owner)

	mr.FastForward(2 * time.Hour)

	_, ok, err = cache.RefreshOwner(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotifiedMarker(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	version := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	seen, err := cache.WasNotified(ctx, 7, version)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.MarkNotified(ctx, 7, version, time.Hour))

	seen, err = cache.WasNotified(ctx, 7, version)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = cache.WasNotified(ctx, 7, version.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, seen, "a newer course version is a distinct notification")
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
		DialTimeout:  200 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
