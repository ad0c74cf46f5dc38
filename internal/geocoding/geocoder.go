package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"route-logger/internal/metrics"
	"route-logger/internal/models"
)

// PostcodeGeocoder resolves postcodes through a UK-specific primary provider and a
// general fallback, caching results by normalized key.
type PostcodeGeocoder struct {
	cache    *Cache
	primary  Provider
	fallback Provider
	timeout  time.Duration
	inflight singleflight.Group
}

type lookupResult struct {
	coords models.Coordinates
	ok     bool
}

// NewPostcodeGeocoder wires the cache and providers. Either provider may be nil.
func NewPostcodeGeocoder(cache *Cache, primary, fallback Provider, timeout time.Duration) *PostcodeGeocoder {
	return &PostcodeGeocoder{
		cache:    cache,
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
	}
}

// Cache exposes the underlying cache
func (g *PostcodeGeocoder) Cache() *Cache {
	return g.cache
}

func (g *PostcodeGeocoder) Geocode(ctx context.Context, postcode, country string) (models.Coordinates, bool) {
	pc := strings.TrimSpace(postcode)
	if !ValidPostcode(pc) {
		metrics.GeocodeInvalidTotal.Inc()
		log.Printf("[GEOCODING] Rejected invalid postcode: postcode=%q country=%q", postcode, country)
		return models.Coordinates{}, false
	}

	key := CacheKey(pc, country)
	if entry, ok := g.cache.Get(ctx, key); ok {
		metrics.GeocodeCacheHitsTotal.Inc()
		if entry.Failed {
			return models.Coordinates{}, false
		}
		return entry.Coords, true
	}
	metrics.GeocodeCacheMissesTotal.Inc()

	// The shared lookup outlives any single caller; each caller still honours its own ctx.
	lookupCtx := context.WithoutCancel(ctx)
	ch := g.inflight.DoChan(key, func() (interface{}, error) {
		return g.lookup(lookupCtx, key, pc, country), nil
	})
	select {
	case r := <-ch:
		res := r.Val.(lookupResult)
		return res.coords, res.ok
	case <-ctx.Done():
		log.Printf("[GEOCODING] Caller gave up waiting: postcode=%s country=%q err=%v", pc, country, ctx.Err())
		return models.Coordinates{}, false
	}
}

func (g *PostcodeGeocoder) lookup(ctx context.Context, key, postcode, country string) lookupResult {
	attempted := 0
	definitive := 0

	if IsUKCountry(country) && g.primary != nil {
		attempted++
		coords, err := g.try(ctx, g.primary, NormalizeUKPostcode(postcode), postcode, country)
		if err == nil {
			g.cache.Add(ctx, models.GeocodeCacheEntry{Key: key, Coords: coords})
			return lookupResult{coords: coords, ok: true}
		}
		if errors.Is(err, ErrNoResults) {
			definitive++
		}
	}

	if g.fallback != nil {
		attempted++
		label := strings.TrimSpace(country)
		if label == "" {
			label = "UK"
		}
		coords, err := g.try(ctx, g.fallback, fmt.Sprintf("%s, %s", postcode, label), postcode, country)
		if err == nil {
			g.cache.Add(ctx, models.GeocodeCacheEntry{Key: key, Coords: coords})
			return lookupResult{coords: coords, ok: true}
		}
		if errors.Is(err, ErrNoResults) {
			definitive++
		}
	}

	// Transient failures are retried on the next request
	if attempted > 0 && definitive == attempted {
		g.cache.Add(ctx, models.GeocodeCacheEntry{Key: key, Failed: true})
	}
	return lookupResult{}
}

func (g *PostcodeGeocoder) try(ctx context.Context, p Provider, query, postcode, country string) (models.Coordinates, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	coords, err := p.Lookup(callCtx, query)
	switch {
	case err == nil:
		metrics.GeocodeLookupsTotal.WithLabelValues(p.Name(), "ok").Inc()
	case errors.Is(err, ErrNoResults):
		metrics.GeocodeLookupsTotal.WithLabelValues(p.Name(), "not_found").Inc()
		log.Printf("[GEOCODING] Not found: postcode=%s country=%q provider=%s err=%v", postcode, country, p.Name(), err)
	default:
		metrics.GeocodeLookupsTotal.WithLabelValues(p.Name(), "error").Inc()
		log.Printf("[ERROR] Geocoding failed: postcode=%s country=%q provider=%s err=%v", postcode, country, p.Name(), err)
	}
	return coords, err
}
