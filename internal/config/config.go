package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"route-logger/internal/database"
)

const (
	OptimizerGoogle = "google"
	OptimizerOSRM   = "osrm"
	OptimizerNone   = "none"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	// ConfigFileEnv names the optional YAML config file
	ConfigFileEnv = "ROUTE_LOGGER_CONFIG"
)

// Config holds the service settings
type Config struct {
	ServerAddr           string        `yaml:"server_addr"`
	RosterPath           string        `yaml:"roster_path"`
	GoogleMapsAPIKey     string        `yaml:"google_maps_api_key"`
	Optimizer            string        `yaml:"optimizer"`
	OSRMBaseURL          string        `yaml:"osrm_base_url"`
	GoogleDirectionsURL  string        `yaml:"google_directions_url"`
	PostcodesBaseURL     string        `yaml:"postcodes_base_url"`
	NominatimBaseURL     string        `yaml:"nominatim_base_url"`
	GeocoderUserAgent    string        `yaml:"geocoder_user_agent"`
	GeocodeCacheSize     int           `yaml:"geocode_cache_size"`
	GeocodeTimeout       time.Duration `yaml:"geocode_timeout"`
	OptimizerTimeout     time.Duration `yaml:"optimizer_timeout"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	GeocodeWorkers       int           `yaml:"geocode_workers"`
	GeocodeStore         string        `yaml:"geocode_store"`
	GeocodeSQLitePath    string        `yaml:"geocode_sqlite_path"`
	GeocodeStoreReset    bool          `yaml:"geocode_store_reset"`
	RedisAddr            string        `yaml:"redis_addr"`
	RedisPassword        string        `yaml:"redis_password"`
	RedisDB              int           `yaml:"redis_db"`
	CORSOrigins          []string      `yaml:"cors_origins"`
	DefaultMaxDistanceKm float64       `yaml:"default_max_distance_km"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		ServerAddr:           "127.0.0.1:8080",
		Optimizer:            OptimizerGoogle,
		OSRMBaseURL:          "https://router.project-osrm.org",
		GoogleDirectionsURL:  "https://maps.googleapis.com/maps/api/directions/json",
		PostcodesBaseURL:     "https://api.postcodes.io",
		NominatimBaseURL:     "https://nominatim.openstreetmap.org",
		GeocoderUserAgent:    "RouteLogger/1.0",
		GeocodeCacheSize:     2000,
		GeocodeTimeout:       10 * time.Second,
		OptimizerTimeout:     30 * time.Second,
		RequestTimeout:       50 * time.Second,
		GeocodeWorkers:       4,
		GeocodeStore:         StoreMemory,
		RedisAddr:            "127.0.0.1:6379",
		CORSOrigins:          []string{"*"},
		DefaultMaxDistanceKm: 10,
	}
}

// Load reads .env, the optional YAML file named by ROUTE_LOGGER_CONFIG, then
// environment overrides, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.RosterPath == "" {
		path, err := database.GetRosterPath()
		if err != nil {
			return nil, err
		}
		cfg.RosterPath = path
	}
	if cfg.GeocodeStore == StoreSQLite && cfg.GeocodeSQLitePath == "" {
		path, err := database.GetGeocodeCachePath()
		if err != nil {
			return nil, err
		}
		cfg.GeocodeSQLitePath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServerAddr, "SERVER_ADDR")
	setString(&c.RosterPath, "ROSTER_PATH")
	setString(&c.GoogleMapsAPIKey, "GOOGLE_MAPS_API_KEY")
	setString(&c.Optimizer, "OPTIMIZER")
	setString(&c.OSRMBaseURL, "OSRM_BASE_URL")
	setString(&c.GoogleDirectionsURL, "GOOGLE_DIRECTIONS_URL")
	setString(&c.PostcodesBaseURL, "POSTCODES_BASE_URL")
	setString(&c.NominatimBaseURL, "NOMINATIM_BASE_URL")
	setString(&c.GeocoderUserAgent, "GEOCODER_USER_AGENT")
	setString(&c.GeocodeStore, "GEOCODE_STORE")
	setString(&c.GeocodeSQLitePath, "GEOCODE_SQLITE_PATH")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitCSV(v)
	}

	ints := map[string]*int{
		"GEOCODE_CACHE_SIZE": &c.GeocodeCacheSize,
		"GEOCODE_WORKERS":    &c.GeocodeWorkers,
		"REDIS_DB":           &c.RedisDB,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"GEOCODE_TIMEOUT":   &c.GeocodeTimeout,
		"OPTIMIZER_TIMEOUT": &c.OptimizerTimeout,
		"REQUEST_TIMEOUT":   &c.RequestTimeout,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv("GEOCODE_STORE_RESET"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid GEOCODE_STORE_RESET: %w", err)
		}
		c.GeocodeStoreReset = b
	}

	if v, ok := os.LookupEnv("DEFAULT_MAX_DISTANCE_KM"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_MAX_DISTANCE_KM: %w", err)
		}
		c.DefaultMaxDistanceKm = f
	}
	return nil
}

// Validate checks value ranges and known names
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	if c.GeocodeCacheSize < 1000 {
		return fmt.Errorf("GEOCODE_CACHE_SIZE must be at least 1000, got %d", c.GeocodeCacheSize)
	}
	if c.GeocodeTimeout <= 0 || c.OptimizerTimeout <= 0 {
		return fmt.Errorf("GEOCODE_TIMEOUT and OPTIMIZER_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.GeocodeWorkers < 1 {
		return fmt.Errorf("GEOCODE_WORKERS must be at least 1, got %d", c.GeocodeWorkers)
	}
	if c.DefaultMaxDistanceKm <= 0 {
		return fmt.Errorf("DEFAULT_MAX_DISTANCE_KM must be positive")
	}

	switch c.Optimizer {
	case OptimizerGoogle, OptimizerOSRM, OptimizerNone:
	default:
		return fmt.Errorf("unknown OPTIMIZER %q (want google, osrm or none)", c.Optimizer)
	}

	switch c.GeocodeStore {
	case StoreMemory:
	case StoreSQLite:
		if c.GeocodeSQLitePath == "" {
			return fmt.Errorf("GEOCODE_SQLITE_PATH is required for the sqlite geocode store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis geocode store")
		}
	default:
		return fmt.Errorf("unknown GEOCODE_STORE %q (want memory, sqlite or redis)", c.GeocodeStore)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
