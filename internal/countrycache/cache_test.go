package countrycache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCacheTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := New(Params{
		Client: client,
		Log:    zap.NewNop(),
		Config: config.Config{
			Redis: config.RedisConfig{CountryCacheTTLSeconds: 60},
		},
	})
	require.NotNil(t, cache)
	return cache, mr
}

type countryRow struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := setupCacheTest(t)
	ctx := context.Background()

	stored := []countryRow{{Code: "US", Name: "United States"}}
	require.NoError(t, cache.Set(ctx, "country::", stored))

	var got []countryRow
	hit, err := cache.Get(ctx, "country::", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stored, got)
}

func TestCacheMiss(t *testing.T) {
	cache, _ := setupCacheTest(t)

	var got []countryRow
	hit, err := cache.Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := setupCacheTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "country::", []countryRow{{Code: "US"}}))
	mr.FastForward(2 * cache.ttl)

	var got []countryRow
	hit, err := cache.Get(ctx, "country::", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidateDropsOnlyPrefixedKeys(t *testing.T) {
	cache, mr := setupCacheTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "country::", []countryRow{{Code: "US"}}))
	require.NoError(t, cache.Set(ctx, "carrier:FEDEX:IP", []countryRow{{Code: "CA"}}))
	require.NoError(t, mr.Set("unrelated", "survives"))

	require.NoError(t, cache.Invalidate(ctx))

	var got []countryRow
	hit, err := cache.Get(ctx, "country::", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = cache.Get(ctx, "carrier:FEDEX:IP", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.True(t, mr.Exists("unrelated"))
}

func TestNewWithoutRedisReturnsNil(t *testing.T) {
	cache := New(Params{Log: zap.NewNop(), Config: config.Config{}})
	assert.Nil(t, cache)
}
