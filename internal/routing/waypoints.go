package routing

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"route-logger/internal/geocoding"
	"route-logger/internal/models"
)

// WaypointSet is the outcome of geocoding a route request
type WaypointSet struct {
	Waypoints []models.Waypoint
	Customers []models.Customer // geocoded customers, in selection order
	HasStart  bool
	HasEnd    bool
	Failures  []models.GeocodeFailure
	Requested int
}

// Coordinates returns the waypoint coordinates in submission order
func (s *WaypointSet) Coordinates() []models.Coordinates {
	coords := make([]models.Coordinates, len(s.Waypoints))
	for i, w := range s.Waypoints {
		coords[i] = w.Coords
	}
	return coords
}

// Builder geocodes a route request into an ordered waypoint list
type Builder struct {
	geocoder geocoding.Geocoder
	workers  int
}

func NewBuilder(geocoder geocoding.Geocoder, workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{geocoder: geocoder, workers: workers}
}

type slot struct {
	kind     models.WaypointKind
	customer *models.Customer
	postcode string
	country  string

	coords models.Coordinates
	ok     bool
}

// Build orders the waypoints as start, customers in selection order, end.
// Entities that fail to geocode are recorded and left out.
func (b *Builder) Build(ctx context.Context, customers []models.Customer, start, end *Endpoint) (*WaypointSet, error) {
	slots := make([]slot, 0, len(customers)+2)
	if start.present() {
		slots = append(slots, slot{kind: models.WaypointStart, postcode: start.Postcode, country: start.Country})
	}
	for i := range customers {
		c := &customers[i]
		slots = append(slots, slot{kind: models.WaypointCustomer, customer: c, postcode: c.Postcode, country: c.Country})
	}
	if end.present() {
		slots = append(slots, slot{kind: models.WaypointEnd, postcode: end.Postcode, country: end.Country})
	}

	if len(slots) < 2 {
		log.Printf("[ROUTING] Not enough waypoints requested: requested=%d", len(slots))
		return nil, &ErrInputInsufficient{Requested: len(slots)}
	}

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range slots {
		s := &slots[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s.coords, s.ok = b.geocoder.Geocode(ctx, s.postcode, s.country)
			return nil
		})
	}
	g.Wait()

	set := &WaypointSet{Requested: len(slots)}
	for _, s := range slots {
		if !s.ok {
			failure := models.GeocodeFailure{Kind: s.kind, Postcode: s.postcode, Country: s.country}
			if s.customer != nil {
				failure.CustomerID = s.customer.ID
				failure.Company = s.customer.Company
			}
			set.Failures = append(set.Failures, failure)
			log.Printf("[ROUTING] Waypoint not geocoded, skipped: kind=%s postcode=%q country=%q customer_id=%s",
				s.kind, s.postcode, s.country, failure.CustomerID)
			continue
		}

		w := models.Waypoint{Kind: s.kind, Postcode: s.postcode, Country: s.country, Coords: s.coords}
		switch s.kind {
		case models.WaypointStart:
			set.HasStart = true
		case models.WaypointEnd:
			set.HasEnd = true
		case models.WaypointCustomer:
			w.CustomerID = s.customer.ID
			set.Customers = append(set.Customers, *s.customer)
		}
		set.Waypoints = append(set.Waypoints, w)
	}

	if len(set.Waypoints) < 2 {
		log.Printf("[ROUTING] Not enough waypoints geocoded: valid=%d requested=%d", len(set.Waypoints), set.Requested)
		return nil, &ErrWaypointsInsufficient{
			Requested: set.Requested,
			Valid:     len(set.Waypoints),
			Failures:  set.Failures,
		}
	}

	log.Printf("[ROUTING] Waypoints built: valid=%d requested=%d failures=%d", len(set.Waypoints), set.Requested, len(set.Failures))
	return set, nil
}
