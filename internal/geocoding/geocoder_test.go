package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-logger/internal/models"
)

type fakeProvider struct {
	name    string
	mu      sync.Mutex
	queries []string
	calls   atomic.Int32
	results map[string]models.Coordinates
	err     error
	delay   time.Duration
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Lookup(ctx context.Context, query string) (models.Coordinates, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.queries = append(p.queries, query)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return models.Coordinates{}, ctx.Err()
		}
	}
	if p.err != nil {
		return models.Coordinates{}, p.err
	}
	if c, ok := p.results[query]; ok {
		return c, nil
	}
	return models.Coordinates{}, notFound(p.name, query)
}

func newTestGeocoder(t *testing.T, primary, fallback *fakeProvider) *PostcodeGeocoder {
	t.Helper()
	cache, err := NewCache(MinCacheSize, nil)
	require.NoError(t, err)

	var p, f Provider
	if primary != nil {
		p = primary
	}
	if fallback != nil {
		f = fallback
	}
	return NewPostcodeGeocoder(cache, p, f, time.Second)
}

func TestGeocodeUsesPrimaryForUK(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: map[string]models.Coordinates{
		"SW1A 1AA": {Lat: 51.501, Lng: -0.1416},
	}}
	fallback := &fakeProvider{name: "fallback"}
	g := newTestGeocoder(t, primary, fallback)

	coords, ok := g.Geocode(context.Background(), "sw1a1aa", "England")

	require.True(t, ok)
	assert.Equal(t, 51.501, coords.Lat)
	assert.Equal(t, []string{"SW1A 1AA"}, primary.queries)
	assert.Zero(t, fallback.calls.Load())
}

func TestGeocodeCacheHitSkipsNetwork(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: map[string]models.Coordinates{
		"M1 1AE": {Lat: 53.48, Lng: -2.24},
	}}
	g := newTestGeocoder(t, primary, nil)
	ctx := context.Background()

	first, ok := g.Geocode(ctx, "M1 1AE", "UK")
	require.True(t, ok)
	second, ok := g.Geocode(ctx, "m11ae", "")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, 1, g.Cache().Len())
}

func TestGeocodeInvalidPostcodeMakesNoCalls(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback"}
	g := newTestGeocoder(t, primary, fallback)

	for _, pc := range []string{"a", "***", "", "   "} {
		_, ok := g.Geocode(context.Background(), pc, "UK")
		assert.False(t, ok, pc)
	}

	assert.Zero(t, primary.calls.Load())
	assert.Zero(t, fallback.calls.Load())
	assert.Zero(t, g.Cache().Len())
}

func TestGeocodeFallsBackToNominatimQuery(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback", results: map[string]models.Coordinates{
		"BT1 1AA, UK": {Lat: 54.6, Lng: -5.93},
	}}
	g := newTestGeocoder(t, primary, fallback)

	coords, ok := g.Geocode(context.Background(), "BT1 1AA", "")

	require.True(t, ok)
	assert.Equal(t, 54.6, coords.Lat)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, []string{"BT1 1AA, UK"}, fallback.queries)
}

func TestGeocodeNonUKSkipsPrimary(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback", results: map[string]models.Coordinates{
		"75001, France": {Lat: 48.86, Lng: 2.34},
	}}
	g := newTestGeocoder(t, primary, fallback)

	coords, ok := g.Geocode(context.Background(), "75001", "France")

	require.True(t, ok)
	assert.Equal(t, 2.34, coords.Lng)
	assert.Zero(t, primary.calls.Load())
}

func TestGeocodeCachesDefinitiveNotFound(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	fallback := &fakeProvider{name: "fallback"}
	g := newTestGeocoder(t, primary, fallback)
	ctx := context.Background()

	_, ok := g.Geocode(ctx, "ZZ9 9ZZ", "UK")
	assert.False(t, ok)
	_, ok = g.Geocode(ctx, "ZZ9 9ZZ", "UK")
	assert.False(t, ok)

	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())
}

func TestGeocodeDoesNotCacheTransientFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("connection reset")}
	g := newTestGeocoder(t, primary, nil)
	ctx := context.Background()

	_, ok := g.Geocode(ctx, "SW1A 1AA", "UK")
	assert.False(t, ok)
	_, ok = g.Geocode(ctx, "SW1A 1AA", "UK")
	assert.False(t, ok)

	assert.Equal(t, int32(2), primary.calls.Load())
	assert.Zero(t, g.Cache().Len())
}

func TestGeocodeTimeoutIsNotFound(t *testing.T) {
	primary := &fakeProvider{name: "primary", delay: time.Second, results: map[string]models.Coordinates{
		"SW1A 1AA": {Lat: 1, Lng: 1},
	}}
	cache, err := NewCache(MinCacheSize, nil)
	require.NoError(t, err)
	g := NewPostcodeGeocoder(cache, primary, nil, 20*time.Millisecond)

	_, ok := g.Geocode(context.Background(), "SW1A 1AA", "UK")
	assert.False(t, ok)
}

func TestGeocodeConcurrentCallers(t *testing.T) {
	primary := &fakeProvider{name: "primary", delay: 20 * time.Millisecond, results: map[string]models.Coordinates{
		"SW1A 1AA": {Lat: 51.5, Lng: -0.14},
	}}
	g := newTestGeocoder(t, primary, nil)

	var wg sync.WaitGroup
	results := make([]models.Coordinates, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, ok := g.Geocode(context.Background(), "SW1A 1AA", "UK")
			assert.True(t, ok)
			results[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		assert.Equal(t, models.Coordinates{Lat: 51.5, Lng: -0.14}, c)
	}
	assert.Equal(t, 1, g.Cache().Len())
	assert.LessOrEqual(t, primary.calls.Load(), int32(len(results)))
}

func TestGeocodeCancelledCallerDoesNotFailJoinedCallers(t *testing.T) {
	primary := &fakeProvider{name: "primary", delay: 150 * time.Millisecond, results: map[string]models.Coordinates{
		"SW1A 1AA": {Lat: 51.5, Lng: -0.14},
	}}
	g := newTestGeocoder(t, primary, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan bool, 1)
	go func() {
		_, ok := g.Geocode(firstCtx, "SW1A 1AA", "UK")
		firstDone <- ok
	}()
	require.Eventually(t, func() bool { return primary.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondDone := make(chan models.Coordinates, 1)
	go func() {
		c, ok := g.Geocode(context.Background(), "SW1A 1AA", "UK")
		assert.True(t, ok)
		secondDone <- c
	}()
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	select {
	case ok := <-firstDone:
		assert.False(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("cancelled caller kept waiting on the shared lookup")
	}

	select {
	case c := <-secondDone:
		assert.Equal(t, models.Coordinates{Lat: 51.5, Lng: -0.14}, c)
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never returned")
	}
	assert.Equal(t, int32(1), primary.calls.Load())

	entry, ok := g.Cache().Get(context.Background(), CacheKey("SW1A 1AA", "UK"))
	require.True(t, ok)
	assert.False(t, entry.Failed)
}
