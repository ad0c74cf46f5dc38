package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.RosterPath = "/tmp/customers.csv"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.ServerAddr)
	assert.Equal(t, 2000, cfg.GeocodeCacheSize)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 30*time.Second, cfg.OptimizerTimeout)
	assert.Equal(t, 50*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StoreMemory, cfg.GeocodeStore)
	assert.False(t, cfg.GeocodeStoreReset)
	assert.Equal(t, 10.0, cfg.DefaultMaxDistanceKm)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ROSTER_PATH", "/data/roster.csv")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("GOOGLE_MAPS_API_KEY", "abc")
	t.Setenv("OPTIMIZER", "osrm")
	t.Setenv("GEOCODE_CACHE_SIZE", "5000")
	t.Setenv("GEOCODE_TIMEOUT", "3s")
	t.Setenv("GEOCODE_WORKERS", "2")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("DEFAULT_MAX_DISTANCE_KM", "25.5")
	t.Setenv("REQUEST_TIMEOUT", "20s")
	t.Setenv("GEOCODE_STORE_RESET", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/roster.csv", cfg.RosterPath)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "abc", cfg.GoogleMapsAPIKey)
	assert.Equal(t, OptimizerOSRM, cfg.Optimizer)
	assert.Equal(t, 5000, cfg.GeocodeCacheSize)
	assert.Equal(t, 3*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 2, cfg.GeocodeWorkers)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 25.5, cfg.DefaultMaxDistanceKm)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.GeocodeStoreReset)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
roster_path: /srv/customers.csv
optimizer: none
geocode_cache_size: 3000
optimizer_timeout: 45s
geocode_store: redis
redis_addr: cache:6379
request_timeout: 40s
geocode_store_reset: true
`), 0644))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("GEOCODE_CACHE_SIZE", "4000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/customers.csv", cfg.RosterPath)
	assert.Equal(t, OptimizerNone, cfg.Optimizer)
	assert.Equal(t, 4000, cfg.GeocodeCacheSize)
	assert.Equal(t, 45*time.Second, cfg.OptimizerTimeout)
	assert.Equal(t, StoreRedis, cfg.GeocodeStore)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 40*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.GeocodeStoreReset)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROSTER_PATH=/env/customers.csv\nGEOCODE_WORKERS=6\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("ROSTER_PATH")
		os.Unsetenv("GEOCODE_WORKERS")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/env/customers.csv", cfg.RosterPath)
	assert.Equal(t, 6, cfg.GeocodeWorkers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ROSTER_PATH", "/data/roster.csv")

	t.Setenv("GEOCODE_WORKERS", "many")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("GEOCODE_WORKERS", "4")

	t.Setenv("GEOCODE_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("GEOCODE_TIMEOUT", "10s")

	t.Setenv("GEOCODE_STORE_RESET", "sometimes")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cache too small", func(c *Config) { c.GeocodeCacheSize = 999 }},
		{"zero timeout", func(c *Config) { c.GeocodeTimeout = 0 }},
		{"zero request budget", func(c *Config) { c.RequestTimeout = 0 }},
		{"no workers", func(c *Config) { c.GeocodeWorkers = 0 }},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "here" }},
		{"unknown store", func(c *Config) { c.GeocodeStore = "memcached" }},
		{"sqlite without path", func(c *Config) { c.GeocodeStore = StoreSQLite; c.GeocodeSQLitePath = "" }},
		{"redis without addr", func(c *Config) { c.GeocodeStore = StoreRedis; c.RedisAddr = "" }},
		{"non-positive distance", func(c *Config) { c.DefaultMaxDistanceKm = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
