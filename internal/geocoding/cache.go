package geocoding

import (
	"context"
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"route-logger/internal/database"
	"route-logger/internal/models"
)

// MinCacheSize is the smallest capacity NewCache accepts
const MinCacheSize = 1000

// Cache is a bounded in-process geocode cache, optionally backed by a persistent store.
// Only successful lookups are written to the store.
type Cache struct {
	entries *lru.Cache[string, models.GeocodeCacheEntry]
	store   database.GeocodeCacheRepository
}

// NewCache creates a cache holding up to size entries. store may be nil.
func NewCache(size int, store database.GeocodeCacheRepository) (*Cache, error) {
	if size < MinCacheSize {
		return nil, fmt.Errorf("geocode cache size %d is below minimum %d", size, MinCacheSize)
	}
	entries, err := lru.New[string, models.GeocodeCacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, store: store}, nil
}

// Get returns the cached entry for key, consulting the store on an in-process miss
func (c *Cache) Get(ctx context.Context, key string) (models.GeocodeCacheEntry, bool) {
	if entry, ok := c.entries.Get(key); ok {
		return entry, true
	}
	if c.store == nil {
		return models.GeocodeCacheEntry{}, false
	}

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("[GEOCODING] Cache store read failed: key=%s err=%v", key, err)
		return models.GeocodeCacheEntry{}, false
	}
	if entry == nil {
		return models.GeocodeCacheEntry{}, false
	}
	c.entries.Add(key, *entry)
	return *entry, true
}

// Add records an entry. Repeated adds for the same key are harmless.
func (c *Cache) Add(ctx context.Context, entry models.GeocodeCacheEntry) {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	c.entries.Add(entry.Key, entry)

	if c.store == nil || entry.Failed {
		return
	}
	if err := c.store.Set(ctx, &entry); err != nil {
		log.Printf("[GEOCODING] Cache store write failed: key=%s err=%v", entry.Key, err)
	}
}

// Purge empties the in-process cache; the persistent store is left alone
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of in-process entries
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Close releases the persistent store, if any
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
