package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"route-logger/internal/config"
	"route-logger/internal/database"
	"route-logger/internal/directions"
	"route-logger/internal/geocoding"
	"route-logger/internal/grouping"
	"route-logger/internal/handlers"
	"route-logger/internal/metrics"
	"route-logger/internal/routing"
	"route-logger/internal/sqlite"
)

// writeGrace is the time left after the request budget to write the response
const writeGrace = 10 * time.Second

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	cache      *geocoding.Cache
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(cfg *config.Config) (*Server, error) {
	log.Printf("Initializing roster store...")
	roster, err := database.NewCSVStore(cfg.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize roster store: %w", err)
	}

	log.Printf("Initializing geocode cache: store=%s size=%d", cfg.GeocodeStore, cfg.GeocodeCacheSize)
	store, healthCheck, err := openGeocodeStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize geocode store: %w", err)
	}
	if cfg.GeocodeStoreReset && store != nil {
		if err := resetGeocodeStore(store); err != nil {
			store.Close()
			return nil, err
		}
	}

	cache, err := geocoding.NewCache(cfg.GeocodeCacheSize, store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("failed to initialize geocode cache: %w", err)
	}

	geocoder := geocoding.NewPostcodeGeocoder(
		cache,
		geocoding.NewPostcodesIOClient(cfg.PostcodesBaseURL, cfg.GeocodeTimeout),
		geocoding.NewNominatimClient(cfg.NominatimBaseURL, cfg.GeocoderUserAgent, cfg.GeocodeTimeout),
		cfg.GeocodeTimeout,
	)

	optimizer := newOptimizer(cfg)
	planner := routing.NewPlanner(routing.NewBuilder(geocoder, cfg.GeocodeWorkers), optimizer, cfg.OptimizerTimeout)

	handler := handlers.New(roster, grouping.NewGrouper(geocoder), planner, cfg.DefaultMaxDistanceKm)
	handler.HealthCheck = healthCheck

	mux := setupRoutes(handler)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      loggingMiddleware(corsMiddleware(cfg.CORSOrigins, timeoutMiddleware(cfg.RequestTimeout, mux))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + writeGrace,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		cache:      cache,
		addr:       cfg.ServerAddr,
	}, nil
}

// openGeocodeStore opens the optional persistent layer behind the in-process geocode cache
func openGeocodeStore(cfg *config.Config) (database.GeocodeCacheRepository, func(context.Context) error, error) {
	switch cfg.GeocodeStore {
	case config.StoreSQLite:
		store, err := sqlite.New(cfg.GeocodeSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store.GeocodeCache(), store.HealthCheck, nil
	case config.StoreRedis:
		client := database.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		health := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return database.NewRedisGeocodeCache(client, 0), health, nil
	default:
		return nil, nil, nil
	}
}

func resetGeocodeStore(store database.GeocodeCacheRepository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset geocode store: %w", err)
	}
	log.Printf("[GEOCODING] Cleared persistent geocode store on startup")
	return nil
}

func newOptimizer(cfg *config.Config) directions.Optimizer {
	switch cfg.Optimizer {
	case config.OptimizerGoogle:
		if cfg.GoogleMapsAPIKey == "" {
			log.Printf("[OPTIMIZER] GOOGLE_MAPS_API_KEY not set, routes keep selection order")
		}
		return directions.NewGoogleOptimizer(cfg.GoogleDirectionsURL, cfg.GoogleMapsAPIKey, cfg.OptimizerTimeout)
	case config.OptimizerOSRM:
		return directions.NewOSRMOptimizer(cfg.OSRMBaseURL, cfg.OptimizerTimeout)
	default:
		log.Printf("[OPTIMIZER] Optimizer disabled, routes keep selection order")
		return nil
	}
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server and releases the geocode store
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.cache.Close()
}

// route registers a handler under both /api<path> and the bare path
func route(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc("/api"+path, h)
	mux.HandleFunc(path, h)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", metrics.Handler())

	route(mux, "/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handler.HandleHealthCheck(w, r)
	})

	route(mux, "/customers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.HandleListCustomers(w, r)
		case http.MethodPost:
			handler.HandleCreateCustomer(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	route(mux, "/customers/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		handler.HandleImportCustomers(w, r)
	})

	route(mux, "/customers/import/raw", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		handler.HandleImportCustomersRaw(w, r)
	})

	route(mux, "/customers/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handler.HandleExportCustomers(w, r)
	})

	route(mux, "/customers/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.HandleGetCustomer(w, r)
		case http.MethodPut:
			handler.HandleUpdateCustomer(w, r)
		case http.MethodDelete:
			handler.HandleDeleteCustomer(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	route(mux, "/groups", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		handler.HandleGroupCustomers(w, r)
	})

	route(mux, "/route/optimize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		handler.HandleOptimizeRoute(w, r)
	})

	route(mux, "/overdue", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handler.HandleOverdueCustomers(w, r)
	})

	return mux
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP] %s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

// timeoutMiddleware bounds each request's context so slow handlers still answer before the write deadline
func timeoutMiddleware(budget time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), budget)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware allows the configured origins; "*" allows any origin
func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	allowAll := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && (allowAll || origins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
