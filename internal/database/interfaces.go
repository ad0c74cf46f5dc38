package database

import (
	"context"

	"route-logger/internal/models"
)

// RosterRepository handles customer roster persistence
type RosterRepository interface {
	List(ctx context.Context) ([]models.Customer, error)
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, fields map[string]string) (*models.Customer, error)
	Update(ctx context.Context, id string, fields map[string]string) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, customers []models.Customer) error
}

// GeocodeCacheRepository persists geocoding results beyond the in-process cache.
// Get returns (nil, nil) on a miss.
type GeocodeCacheRepository interface {
	Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error)
	Set(ctx context.Context, entry *models.GeocodeCacheEntry) error
	Clear(ctx context.Context) error
	Close() error
}
