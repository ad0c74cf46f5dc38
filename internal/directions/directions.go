package directions

import (
	"context"
	"errors"
	"fmt"
	"math"

	"route-logger/internal/models"
)

// Optimization is an optimizer's answer for one waypoint list.
// Order is a permutation over the interior waypoints (all but the first and last).
type Optimization struct {
	Order []int
	Legs  []models.RouteLeg
}

// Optimizer orders the interior of a waypoint list, keeping the first and last fixed
type Optimizer interface {
	Name() string
	Optimize(ctx context.Context, points []models.Coordinates) (*Optimization, error)
}

// ErrOptimizerUnavailable is returned when the optimizer is not configured
var ErrOptimizerUnavailable = errors.New("route optimizer unavailable")

// ErrOptimizationFailed is returned when the optimizer call fails or answers with an error
type ErrOptimizationFailed struct {
	Provider string
	Reason   string
}

func (e *ErrOptimizationFailed) Error() string {
	return fmt.Sprintf("route optimization failed via %s: %s", e.Provider, e.Reason)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func formatDuration(secs float64) string {
	mins := int(math.Round(secs / 60))
	if mins < 60 {
		if mins == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", mins)
	}
	return fmt.Sprintf("%d hours %d mins", mins/60, mins%60)
}
