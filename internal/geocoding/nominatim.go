package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"route-logger/internal/models"
)

const nominatimProvider = "nominatim"

type nominatimGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimClient creates a free-text geocoder limited to one request per second
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) Provider {
	return &nominatimGeocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (g *nominatimGeocoder) Name() string { return nominatimProvider }

func (g *nominatimGeocoder) Lookup(ctx context.Context, query string) (models.Coordinates, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: err.Error(), Err: err}
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(query))
	log.Printf("[NOMINATIM] Request: query=%s", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: err.Error(), Err: err}
	}

	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Coordinates{}, &ErrGeocodingFailed{
			Query:    query,
			Provider: nominatimProvider,
			Reason:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: err.Error(), Err: err}
	}

	if len(results) == 0 {
		return models.Coordinates{}, notFound(nominatimProvider, query)
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: "invalid latitude", Err: err}
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: "invalid longitude", Err: err}
	}

	coords := models.Coordinates{Lat: lat, Lng: lng}
	if !coords.Valid() {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: query, Provider: nominatimProvider, Reason: "coordinates out of range"}
	}

	log.Printf("[NOMINATIM] Response: query=%s lat=%.6f lng=%.6f display_name=%s", query, lat, lng, result.DisplayName)
	return coords, nil
}
