package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"route-logger/internal/models"
)

const postcodesProvider = "postcodes.io"

type postcodesIOClient struct {
	baseURL    string
	httpClient *http.Client
}

type postcodesResponse struct {
	Status int `json:"status"`
	Result *struct {
		Postcode  string   `json:"postcode"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// NewPostcodesIOClient creates a UK postcode lookup against postcodes.io
func NewPostcodesIOClient(baseURL string, timeout time.Duration) Provider {
	return &postcodesIOClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *postcodesIOClient) Name() string { return postcodesProvider }

func (c *postcodesIOClient) Lookup(ctx context.Context, postcode string) (models.Coordinates, error) {
	queryURL := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(postcode))
	log.Printf("[POSTCODES] Request: postcode=%s", postcode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: postcode, Provider: postcodesProvider, Reason: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: postcode, Provider: postcodesProvider, Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Coordinates{}, notFound(postcodesProvider, postcode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Coordinates{}, &ErrGeocodingFailed{
			Query:    postcode,
			Provider: postcodesProvider,
			Reason:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var payload postcodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Coordinates{}, &ErrGeocodingFailed{Query: postcode, Provider: postcodesProvider, Reason: err.Error(), Err: err}
	}

	if payload.Result == nil || payload.Result.Latitude == nil || payload.Result.Longitude == nil {
		return models.Coordinates{}, notFound(postcodesProvider, postcode)
	}

	coords := models.Coordinates{Lat: *payload.Result.Latitude, Lng: *payload.Result.Longitude}
	if !coords.Valid() {
		return models.Coordinates{}, notFound(postcodesProvider, postcode)
	}

	log.Printf("[POSTCODES] Response: postcode=%s lat=%.6f lng=%.6f", postcode, coords.Lat, coords.Lng)
	return coords, nil
}
