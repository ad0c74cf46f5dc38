package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"route-logger/internal/models"
)

// Geocoder resolves a postcode and country to a coordinate.
// The bool is false when the postcode is invalid or no provider could locate it.
type Geocoder interface {
	Geocode(ctx context.Context, postcode, country string) (models.Coordinates, bool)
}

// Provider performs a single lookup against one upstream service
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query string) (models.Coordinates, error)
}

// ErrNoResults means the provider answered but knows no location for the query
var ErrNoResults = errors.New("no results found")

// ErrGeocodingFailed is returned when a provider lookup fails
type ErrGeocodingFailed struct {
	Query    string
	Provider string
	Reason   string
	Err      error
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for %q via %s: %s", e.Query, e.Provider, e.Reason)
}

func (e *ErrGeocodingFailed) Unwrap() error {
	return e.Err
}

func notFound(provider, query string) error {
	return &ErrGeocodingFailed{Query: query, Provider: provider, Reason: ErrNoResults.Error(), Err: ErrNoResults}
}

var ukCountries = map[string]bool{
	"":                 true,
	"uk":               true,
	"united kingdom":   true,
	"great britain":    true,
	"gb":               true,
	"england":          true,
	"scotland":         true,
	"wales":            true,
	"northern ireland": true,
}

// IsUKCountry reports whether the country names the United Kingdom or is absent
func IsUKCountry(country string) bool {
	return ukCountries[strings.ToLower(strings.TrimSpace(country))]
}

// ValidPostcode accepts 3 to 15 characters of ASCII letters, digits, spaces and hyphens
func ValidPostcode(postcode string) bool {
	pc := strings.TrimSpace(postcode)
	if len(pc) < 3 || len(pc) > 15 {
		return false
	}
	for _, r := range pc {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '-':
		default:
			return false
		}
	}
	return true
}

// NormalizeUKPostcode upper-cases the postcode and puts a single space before the inward code
func NormalizeUKPostcode(postcode string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if len(compact) <= 3 {
		return compact
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}

// CacheKey identifies a lookup independently of postcode spacing and case
func CacheKey(postcode, country string) string {
	if IsUKCountry(country) {
		return NormalizeUKPostcode(postcode) + "|UK"
	}
	compact := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	return compact + "|" + strings.ToUpper(strings.TrimSpace(country))
}
