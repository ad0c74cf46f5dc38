package models

import (
	"math"
	"time"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and inside the WGS84 range
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Customer is a single roster record.
//
// ID is assigned by the roster store and is stable across reloads. Older rosters
// addressed customers by row position; see database.ResolveRefs.
type Customer struct {
	ID              string            `json:"id"`
	Company         string            `json:"company"`
	AccountNumber   string            `json:"account_number"`
	Country         string            `json:"country"`
	Postcode        string            `json:"postcode"`
	Status          string            `json:"status"`
	CurrentSpend    *float64          `json:"current_spend"`
	TaggedCustomers bool              `json:"tagged_customers"`
	DateOfLastVisit *string           `json:"date_of_last_visit"`
	VisitFrequency  *int              `json:"visit_frequency"`
	NextDueDate     *string           `json:"next_due_date"`
	AreaCode        string            `json:"area_code,omitempty"`
	MultiSite       *bool             `json:"multi_site,omitempty"`
	Urgency         string            `json:"urgency,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// WaypointKind tags where a waypoint came from
type WaypointKind string

const (
	WaypointStart    WaypointKind = "start"
	WaypointCustomer WaypointKind = "customer"
	WaypointEnd      WaypointKind = "end"
)

// Waypoint is a geocoded point submitted to the optimizer
type Waypoint struct {
	Kind       WaypointKind `json:"kind"`
	CustomerID string       `json:"customer_id,omitempty"`
	Postcode   string       `json:"postcode"`
	Country    string       `json:"country"`
	Coords     Coordinates  `json:"coords"`
}

// GeocodeFailure describes one entity that could not be geocoded
type GeocodeFailure struct {
	Kind       WaypointKind `json:"kind"`
	Postcode   string       `json:"postcode"`
	Country    string       `json:"country"`
	CustomerID string       `json:"customer_id,omitempty"`
	Company    string       `json:"company,omitempty"`
}

// GeocodeCacheEntry is a cached geocoding outcome. Failed entries carry no coordinates.
type GeocodeCacheEntry struct {
	Key      string      `json:"key"`
	Coords   Coordinates `json:"coords"`
	Failed   bool        `json:"failed"`
	CachedAt time.Time   `json:"cached_at"`
}

// RouteLeg is one segment of an optimized route as reported by the optimizer
type RouteLeg struct {
	StartAddress   string      `json:"start_address,omitempty"`
	EndAddress     string      `json:"end_address,omitempty"`
	StartLocation  Coordinates `json:"start_location"`
	EndLocation    Coordinates `json:"end_location"`
	DistanceMeters float64     `json:"distance_meters"`
	DurationSecs   float64     `json:"duration_secs"`
	DistanceText   string      `json:"distance_text,omitempty"`
	DurationText   string      `json:"duration_text,omitempty"`
	Summary        string      `json:"summary,omitempty"`
}

// RouteStop is one visit in the final route. Start and end stops have no customer.
type RouteStop struct {
	Order    int          `json:"order"`
	Kind     WaypointKind `json:"kind"`
	Customer *Customer    `json:"customer,omitempty"`
	Postcode string       `json:"postcode"`
	Coords   Coordinates  `json:"coords"`
}

// RouteResult contains the full result of a route optimization
type RouteResult struct {
	OptimizedCustomers []Customer    `json:"optimized_customers"`
	Stops              []RouteStop   `json:"stops"`
	Waypoints          []Coordinates `json:"waypoints"`
	Legs               []RouteLeg    `json:"route_legs"`
	StartPostcode      string        `json:"start_postcode,omitempty"`
	EndPostcode        string        `json:"end_postcode,omitempty"`
	Optimized          bool          `json:"optimized"`
}

// CustomerGroup is one proximity cluster
type CustomerGroup struct {
	GroupID   int        `json:"group_id"`
	Customers []Customer `json:"customers"`
	Count     int        `json:"count"`
}
