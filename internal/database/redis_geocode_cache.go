package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"route-logger/internal/models"
)

const redisGeocodePrefix = "geocode:"

// RedisGeocodeCache stores geocoding results in Redis so several processes can share them
type RedisGeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

type redisGeocodeValue struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Failed   bool      `json:"failed"`
	CachedAt time.Time `json:"cached_at"`
}

// OpenRedis creates a client for the given address; it does not dial until first use
func OpenRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisGeocodeCache wraps a client. A zero ttl keeps entries forever.
func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: ttl}
}

func (c *RedisGeocodeCache) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	raw, err := c.client.Get(ctx, redisGeocodePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var v redisGeocodeValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached geocode %q: %w", key, err)
	}
	return &models.GeocodeCacheEntry{
		Key:      key,
		Coords:   models.Coordinates{Lat: v.Lat, Lng: v.Lng},
		Failed:   v.Failed,
		CachedAt: v.CachedAt,
	}, nil
}

func (c *RedisGeocodeCache) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	cachedAt := entry.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}
	raw, err := json.Marshal(redisGeocodeValue{
		Lat:      entry.Coords.Lat,
		Lng:      entry.Coords.Lng,
		Failed:   entry.Failed,
		CachedAt: cachedAt,
	})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisGeocodePrefix+entry.Key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", entry.Key, err)
	}
	return nil
}

func (c *RedisGeocodeCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisGeocodePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisGeocodeCache) Close() error {
	return c.client.Close()
}
