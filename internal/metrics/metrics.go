package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeocodeLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routelogger_geocode_lookups_total",
		Help: "Geocoding provider calls by provider and outcome",
	}, []string{"provider", "outcome"})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routelogger_geocode_cache_hits_total",
		Help: "Geocode lookups answered from cache",
	})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routelogger_geocode_cache_misses_total",
		Help: "Geocode lookups that missed the cache",
	})
	GeocodeInvalidTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routelogger_geocode_invalid_postcodes_total",
		Help: "Postcodes rejected by the format check before any network call",
	})
	OptimizerCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routelogger_optimizer_calls_total",
		Help: "Route optimizer calls by provider and outcome",
	}, []string{"provider", "outcome"})
	OptimizerDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routelogger_optimizer_duration_ms",
		Help:    "Route optimizer call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	ReconcileFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routelogger_reconcile_fallbacks_total",
		Help: "Routes returned in selection order because the optimizer permutation was missing or invalid",
	})
)

func init() {
	prometheus.MustRegister(
		GeocodeLookupsTotal,
		GeocodeCacheHitsTotal,
		GeocodeCacheMissesTotal,
		GeocodeInvalidTotal,
		OptimizerCallsTotal,
		OptimizerDurationMs,
		ReconcileFallbacksTotal,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
