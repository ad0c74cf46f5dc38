package routing

import (
	"context"
	"errors"
	"log"
	"time"

	"route-logger/internal/directions"
	"route-logger/internal/metrics"
	"route-logger/internal/models"
)

// Planner turns a customer selection into an ordered visit route
type Planner struct {
	builder   *Builder
	optimizer directions.Optimizer
	timeout   time.Duration
}

// NewPlanner creates a planner. A nil optimizer keeps every route in selection order.
func NewPlanner(builder *Builder, optimizer directions.Optimizer, timeout time.Duration) *Planner {
	return &Planner{builder: builder, optimizer: optimizer, timeout: timeout}
}

// Plan geocodes the request, asks the optimizer for an interior order and applies it.
// Optimizer failures are logged and leave the selection order in place.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*models.RouteResult, error) {
	set, err := p.builder.Build(ctx, req.Customers, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	coords := set.Coordinates()
	mode := ModeFor(set.HasStart, set.HasEnd)

	var order []int
	legs := []models.RouteLeg{}
	opt, optErr := p.optimize(ctx, coords)
	if optErr == nil {
		order = opt.Order
		if opt.Legs != nil {
			legs = opt.Legs
		}
	}

	customers, applied := Reconcile(set.Customers, order, mode)

	result := &models.RouteResult{
		OptimizedCustomers: customers,
		Stops:              buildStops(set, customers),
		Waypoints:          coords,
		Legs:               legs,
		Optimized:          optErr == nil && (applied || len(coords) == 2),
	}
	if req.Start != nil {
		result.StartPostcode = req.Start.Postcode
	}
	if req.End != nil {
		result.EndPostcode = req.End.Postcode
	}

	log.Printf("[ROUTING] Route planned: mode=%s customers=%d waypoints=%d legs=%d optimized=%v",
		mode, len(customers), len(coords), len(legs), result.Optimized)
	return result, nil
}

func (p *Planner) optimize(ctx context.Context, coords []models.Coordinates) (*directions.Optimization, error) {
	if p.optimizer == nil {
		metrics.OptimizerCallsTotal.WithLabelValues("none", "unavailable").Inc()
		return nil, directions.ErrOptimizerUnavailable
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	opt, err := p.optimizer.Optimize(callCtx, coords)
	metrics.OptimizerDurationMs.Observe(float64(time.Since(started).Milliseconds()))

	switch {
	case err == nil && opt != nil:
		metrics.OptimizerCallsTotal.WithLabelValues(p.optimizer.Name(), "ok").Inc()
		return opt, nil
	case errors.Is(err, directions.ErrOptimizerUnavailable):
		metrics.OptimizerCallsTotal.WithLabelValues(p.optimizer.Name(), "unavailable").Inc()
		log.Printf("[OPTIMIZER] Optimizer unavailable, keeping selection order: provider=%s", p.optimizer.Name())
		return nil, err
	default:
		if err == nil {
			err = &directions.ErrOptimizationFailed{Provider: p.optimizer.Name(), Reason: "empty response"}
		}
		metrics.OptimizerCallsTotal.WithLabelValues(p.optimizer.Name(), "error").Inc()
		log.Printf("[ERROR] Route optimization failed, keeping selection order: provider=%s err=%v", p.optimizer.Name(), err)
		return nil, err
	}
}

func buildStops(set *WaypointSet, customers []models.Customer) []models.RouteStop {
	coordsByID := make(map[string]models.Coordinates, len(set.Waypoints))
	var startStop, endStop *models.RouteStop
	for _, w := range set.Waypoints {
		switch w.Kind {
		case models.WaypointCustomer:
			coordsByID[w.CustomerID] = w.Coords
		case models.WaypointStart:
			startStop = &models.RouteStop{Kind: models.WaypointStart, Postcode: w.Postcode, Coords: w.Coords}
		case models.WaypointEnd:
			endStop = &models.RouteStop{Kind: models.WaypointEnd, Postcode: w.Postcode, Coords: w.Coords}
		}
	}

	stops := make([]models.RouteStop, 0, len(customers)+2)
	if startStop != nil {
		stops = append(stops, *startStop)
	}
	for i := range customers {
		c := customers[i]
		stops = append(stops, models.RouteStop{
			Kind:     models.WaypointCustomer,
			Customer: &c,
			Postcode: c.Postcode,
			Coords:   coordsByID[c.ID],
		})
	}
	if endStop != nil {
		stops = append(stops, *endStop)
	}

	for i := range stops {
		stops[i].Order = i + 1
	}
	return stops
}
