package testutil

import (
	"context"
	"strings"
	"sync"

	"route-logger/internal/models"
)

// GeocodeCall tracks a call to the geocoder
type GeocodeCall struct {
	Postcode string
	Country  string
}

// MockGeocoder is a mock implementation for testing.
// Postcodes are looked up case-insensitively in Locations; unknown postcodes fail.
type MockGeocoder struct {
	mu        sync.Mutex
	Locations map[string]models.Coordinates
	Calls     []GeocodeCall
}

func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		Locations: make(map[string]models.Coordinates),
		Calls:     []GeocodeCall{},
	}
}

// SetLocation registers the coordinate returned for a postcode
func (m *MockGeocoder) SetLocation(postcode string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locations[strings.ToUpper(strings.TrimSpace(postcode))] = models.Coordinates{Lat: lat, Lng: lng}
}

// CallCount returns how many lookups were made
func (m *MockGeocoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockGeocoder) Geocode(ctx context.Context, postcode, country string) (models.Coordinates, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, GeocodeCall{Postcode: postcode, Country: country})

	c, ok := m.Locations[strings.ToUpper(strings.TrimSpace(postcode))]
	return c, ok
}
