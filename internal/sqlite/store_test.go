package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-logger/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "cache", "geocode.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGeocodeCacheMiss(t *testing.T) {
	store := setupTestStore(t)

	entry, err := store.GeocodeCache().Get(context.Background(), "SW1A1AA|UK")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestGeocodeCacheSetGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	cache := store.GeocodeCache()

	cachedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{
		Key:      "M11AE|UK",
		Coords:   models.Coordinates{Lat: 53.4808, Lng: -2.2426},
		CachedAt: cachedAt,
	}))

	entry, err := cache.Get(ctx, "M11AE|UK")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "M11AE|UK", entry.Key)
	assert.Equal(t, 53.4808, entry.Coords.Lat)
	assert.Equal(t, -2.2426, entry.Coords.Lng)
	assert.False(t, entry.Failed)
	assert.True(t, cachedAt.Equal(entry.CachedAt))
}

func TestGeocodeCacheOverwriteAndClear(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	cache := store.GeocodeCache()

	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{Key: "k", Failed: true}))
	require.NoError(t, cache.Set(ctx, &models.GeocodeCacheEntry{Key: "k", Coords: models.Coordinates{Lat: 1, Lng: 2}}))

	entry, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Failed)
	assert.Equal(t, 2.0, entry.Coords.Lng)

	require.NoError(t, cache.Clear(ctx))
	entry, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocode.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.GeocodeCache().Set(ctx, &models.GeocodeCacheEntry{Key: "k", Coords: models.Coordinates{Lat: 5, Lng: 6}}))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.GeocodeCache().Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 5.0, entry.Coords.Lat)
	assert.NoError(t, reopened.HealthCheck(ctx))
}
