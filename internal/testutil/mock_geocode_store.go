package testutil

import (
	"context"
	"sync"

	"route-logger/internal/models"
)

// MockGeocodeStore is an in-memory persistent geocode cache
type MockGeocodeStore struct {
	mu      sync.Mutex
	Entries map[string]models.GeocodeCacheEntry
	Sets    int
	Closed  bool
}

func NewMockGeocodeStore() *MockGeocodeStore {
	return &MockGeocodeStore{Entries: make(map[string]models.GeocodeCacheEntry)}
}

func (s *MockGeocodeStore) Get(ctx context.Context, key string) (*models.GeocodeCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MockGeocodeStore) Set(ctx context.Context, entry *models.GeocodeCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries[entry.Key] = *entry
	s.Sets++
	return nil
}

func (s *MockGeocodeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = make(map[string]models.GeocodeCacheEntry)
	return nil
}

func (s *MockGeocodeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}
