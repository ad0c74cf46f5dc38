package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-logger/internal/models"
)

func setupRedisCache(t *testing.T, ttl time.Duration) (*RedisGeocodeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := NewRedisGeocodeCache(OpenRedis(mr.Addr(), "", 0), ttl)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisGeocodeCacheMiss(t *testing.T) {
	cache, _ := setupRedisCache(t, 0)

	entry, err := cache.Get(context.Background(), "SW1A1AA|UK")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisGeocodeCacheSetGet(t *testing.T) {
	cache, mr := setupRedisCache(t, 0)
	ctx := context.Background()

	err := cache.Set(ctx, &models.GeocodeCacheEntry{
		Key:    "SW1A1AA|UK",
		Coords: models.Coordinates{Lat: 51.501, Lng: -0.1416},
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("geocode:SW1A1AA|UK"))

	entry, err := cache.Get(ctx, "SW1A1AA|UK")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 51.501, entry.Coords.Lat)
	assert.Equal(t, -0.1416, entry.Coords.Lng)
	assert.False(t, entry.Failed)
	assert.False(t, entry.CachedAt.IsZero())
}

func TestRedisGeocodeCacheTTL(t *testing.T) {
	cache, mr := setupRedisCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{Key: "k", Coords: models.Coordinates{Lat: 1, Lng: 1}}))
	mr.FastForward(2 * time.Hour)

	entry, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisGeocodeCacheClear(t *testing.T) {
	cache, mr := setupRedisCache(t, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set("unrelated", "keep"))
	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{Key: "a", Coords: models.Coordinates{Lat: 1, Lng: 1}}))
	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{Key: "b", Coords: models.Coordinates{Lat: 2, Lng: 2}}))

	require.NoError(t, cache.Clear(ctx))

	assert.False(t, mr.Exists("geocode:a"))
	assert.False(t, mr.Exists("geocode:b"))
	assert.True(t, mr.Exists("unrelated"))
}
