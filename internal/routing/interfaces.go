package routing

import (
	"fmt"
	"strings"

	"route-logger/internal/models"
)

// BoundaryMode says which ends of a route are pinned by an explicit start or end postcode
type BoundaryMode string

const (
	NeitherFixed BoundaryMode = "neither" // first and last customers are the route ends
	StartFixed   BoundaryMode = "start"   // start postcode → customers; last customer ends the route
	EndFixed     BoundaryMode = "end"     // first customer starts the route → customers → end postcode
	BothFixed    BoundaryMode = "both"    // start postcode → customers → end postcode
)

// ModeFor picks the boundary mode from whether the start and end actually geocoded
func ModeFor(hasStart, hasEnd bool) BoundaryMode {
	switch {
	case hasStart && hasEnd:
		return BothFixed
	case hasStart:
		return StartFixed
	case hasEnd:
		return EndFixed
	default:
		return NeitherFixed
	}
}

// Endpoint is an explicit route start or end
type Endpoint struct {
	Postcode string
	Country  string
}

func (e *Endpoint) present() bool {
	return e != nil && strings.TrimSpace(e.Postcode) != ""
}

// PlanRequest is a route planning request over already-resolved customers
type PlanRequest struct {
	Customers []models.Customer
	Start     *Endpoint
	End       *Endpoint
}

// ErrInputInsufficient is returned when fewer than two waypoints were requested
type ErrInputInsufficient struct {
	Requested int
}

func (e *ErrInputInsufficient) Error() string {
	return fmt.Sprintf("need at least 2 total waypoints from customers and/or start/end postcodes, got %d", e.Requested)
}

// ErrWaypointsInsufficient is returned when fewer than two waypoints could be geocoded
type ErrWaypointsInsufficient struct {
	Requested int
	Valid     int
	Failures  []models.GeocodeFailure
}

func (e *ErrWaypointsInsufficient) Error() string {
	return fmt.Sprintf("need at least 2 valid locations, only %d of %d could be geocoded", e.Valid, e.Requested)
}

// SuccessRatio is the fraction of requested waypoints that geocoded
func (e *ErrWaypointsInsufficient) SuccessRatio() float64 {
	if e.Requested == 0 {
		return 0
	}
	return float64(e.Valid) / float64(e.Requested)
}
