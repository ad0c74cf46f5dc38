package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"route-logger/internal/models"
)

const googleProvider = "google"

type googleOptimizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary       string `json:"summary"`
		WaypointOrder []int  `json:"waypoint_order"`
		Legs          []struct {
			StartAddress  string       `json:"start_address"`
			EndAddress    string       `json:"end_address"`
			StartLocation googleLatLng `json:"start_location"`
			EndLocation   googleLatLng `json:"end_location"`
			Distance      googleValue  `json:"distance"`
			Duration      googleValue  `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// NewGoogleOptimizer creates an optimizer backed by the Google Directions API.
// An empty apiKey makes every call return ErrOptimizerUnavailable without network access.
func NewGoogleOptimizer(baseURL, apiKey string, timeout time.Duration) Optimizer {
	return &googleOptimizer{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (o *googleOptimizer) Name() string { return googleProvider }

func latLng(c models.Coordinates) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

func (o *googleOptimizer) Optimize(ctx context.Context, points []models.Coordinates) (*Optimization, error) {
	if o.apiKey == "" {
		return nil, ErrOptimizerUnavailable
	}
	if len(points) < 2 {
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: "at least 2 waypoints required"}
	}

	params := url.Values{}
	params.Set("origin", latLng(points[0]))
	params.Set("destination", latLng(points[len(points)-1]))
	interior := points[1 : len(points)-1]
	if len(interior) > 0 {
		parts := make([]string, 0, len(interior)+1)
		parts = append(parts, "optimize:true")
		for _, p := range interior {
			parts = append(parts, latLng(p))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}
	params.Set("key", o.apiKey)

	log.Printf("[OPTIMIZER] Google request: waypoints=%d interior=%d", len(points), len(interior))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: err.Error()}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ErrOptimizationFailed{
			Provider: googleProvider,
			Reason:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var payload googleDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: err.Error()}
	}

	if payload.Status != "OK" {
		reason := payload.Status
		if payload.ErrorMessage != "" {
			reason = fmt.Sprintf("%s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: reason}
	}
	if len(payload.Routes) == 0 {
		return nil, &ErrOptimizationFailed{Provider: googleProvider, Reason: "no routes returned"}
	}

	route := payload.Routes[0]
	legs := make([]models.RouteLeg, 0, len(route.Legs))
	for _, l := range route.Legs {
		legs = append(legs, models.RouteLeg{
			StartAddress:   l.StartAddress,
			EndAddress:     l.EndAddress,
			StartLocation:  models.Coordinates{Lat: l.StartLocation.Lat, Lng: l.StartLocation.Lng},
			EndLocation:    models.Coordinates{Lat: l.EndLocation.Lat, Lng: l.EndLocation.Lng},
			DistanceMeters: l.Distance.Value,
			DurationSecs:   l.Duration.Value,
			DistanceText:   l.Distance.Text,
			DurationText:   l.Duration.Text,
			Summary:        route.Summary,
		})
	}

	log.Printf("[OPTIMIZER] Google response: status=%s waypoint_order=%v legs=%d", payload.Status, route.WaypointOrder, len(legs))
	return &Optimization{Order: route.WaypointOrder, Legs: legs}, nil
}
