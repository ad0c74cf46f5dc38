package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"route-logger/internal/models"
)

const osrmProvider = "osrm"

// maxOSRMCoordinates is the maximum number of coordinates OSRM public API accepts
const maxOSRMCoordinates = 80

type osrmOptimizer struct {
	baseURL    string
	httpClient *http.Client
}

type osrmTripResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		WaypointIndex int       `json:"waypoint_index"`
		TripsIndex    int       `json:"trips_index"`
		Location      []float64 `json:"location"`
	} `json:"waypoints"`
	Trips []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Summary  string  `json:"summary"`
		} `json:"legs"`
	} `json:"trips"`
}

// NewOSRMOptimizer creates an optimizer backed by the OSRM trip service
func NewOSRMOptimizer(baseURL string, timeout time.Duration) Optimizer {
	return &osrmOptimizer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (o *osrmOptimizer) Name() string { return osrmProvider }

func (o *osrmOptimizer) Optimize(ctx context.Context, points []models.Coordinates) (*Optimization, error) {
	n := len(points)
	if n < 2 {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: "at least 2 waypoints required"}
	}
	if n > maxOSRMCoordinates {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: fmt.Sprintf("too many waypoints: %d > %d", n, maxOSRMCoordinates)}
	}

	coords := make([]string, n)
	for i, p := range points {
		coords[i] = fmt.Sprintf("%f,%f", p.Lng, p.Lat)
	}
	queryURL := fmt.Sprintf("%s/trip/v1/driving/%s?source=first&destination=last&roundtrip=false&overview=false",
		o.baseURL, strings.Join(coords, ";"))

	log.Printf("[OPTIMIZER] OSRM trip request: waypoints=%d", n)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: err.Error()}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ErrOptimizationFailed{
			Provider: osrmProvider,
			Reason:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var payload osrmTripResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: err.Error()}
	}

	if payload.Code != "Ok" {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: fmt.Sprintf("OSRM error: %s %s", payload.Code, payload.Message)}
	}
	if len(payload.Trips) == 0 || len(payload.Waypoints) != n {
		return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: "incomplete trip response"}
	}

	// waypoint_index gives each input's position in the trip; invert it into visit order
	visit := make([]int, n)
	seen := make([]bool, n)
	for input, wp := range payload.Waypoints {
		if wp.WaypointIndex < 0 || wp.WaypointIndex >= n || seen[wp.WaypointIndex] {
			return nil, &ErrOptimizationFailed{Provider: osrmProvider, Reason: "invalid waypoint_index in trip response"}
		}
		seen[wp.WaypointIndex] = true
		visit[wp.WaypointIndex] = input
	}

	order := make([]int, 0, n-2)
	for _, input := range visit[1 : n-1] {
		order = append(order, input-1)
	}

	trip := payload.Trips[0]
	legs := make([]models.RouteLeg, 0, len(trip.Legs))
	for i, l := range trip.Legs {
		leg := models.RouteLeg{
			DistanceMeters: l.Distance,
			DurationSecs:   l.Duration,
			DistanceText:   formatDistance(l.Distance),
			DurationText:   formatDuration(l.Duration),
			Summary:        l.Summary,
		}
		if i+1 < n {
			leg.StartLocation = points[visit[i]]
			leg.EndLocation = points[visit[i+1]]
		}
		legs = append(legs, leg)
	}

	log.Printf("[OPTIMIZER] OSRM trip response: code=%s order=%v legs=%d distance=%.0f", payload.Code, order, len(legs), trip.Distance)
	return &Optimization{Order: order, Legs: legs}, nil
}
