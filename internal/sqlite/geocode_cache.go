package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"route-logger/internal/models"
)

type geocodeCacheRepository struct {
	store *Store
}

func (r *geocodeCacheRepository) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT cache_key, lat, lng, failed, cached_at FROM geocode_cache WHERE cache_key = ?`

	var entry models.GeocodeCacheEntry
	var failed int
	err := r.store.db.QueryRowContext(ctx, query, key).Scan(
		&entry.Key, &entry.Coords.Lat, &entry.Coords.Lng, &failed, &entry.CachedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}

	entry.Failed = failed != 0
	return &entry, nil
}

func (r *geocodeCacheRepository) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	query := `INSERT OR REPLACE INTO geocode_cache (cache_key, lat, lng, failed, cached_at)
	          VALUES (?, ?, ?, ?, ?)`

	cachedAt := entry.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}
	failed := 0
	if entry.Failed {
		failed = 1
	}

	_, err := r.store.db.ExecContext(ctx, query,
		entry.Key, entry.Coords.Lat, entry.Coords.Lng, failed, cachedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set geocode cache entry: %w", err)
	}

	return nil
}

func (r *geocodeCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM geocode_cache"); err != nil {
		return fmt.Errorf("failed to clear geocode cache: %w", err)
	}

	return nil
}

func (r *geocodeCacheRepository) Close() error {
	return r.store.Close()
}
