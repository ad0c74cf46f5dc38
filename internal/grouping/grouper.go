package grouping

import (
	"context"
	"log"

	"github.com/tidwall/geodesic"

	"route-logger/internal/geocoding"
	"route-logger/internal/models"
)

// DistanceKm returns the WGS84 geodesic distance between two points in kilometres
func DistanceKm(a, b models.Coordinates) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lng, b.Lat, b.Lng, &meters, nil, nil)
	return meters / 1000
}

// Grouper clusters customers around seed customers by geodesic distance
type Grouper struct {
	geocoder geocoding.Geocoder
}

func NewGrouper(geocoder geocoding.Geocoder) *Grouper {
	return &Grouper{geocoder: geocoder}
}

type point struct {
	coords models.Coordinates
	ok     bool
	done   bool
}

// Group partitions customer indices into clusters. The lowest ungrouped index seeds each
// cluster; every other ungrouped customer within maxDistanceKm of the seed joins it.
// Members are compared with the seed only. Customers that cannot be geocoded end up alone.
func (g *Grouper) Group(ctx context.Context, customers []models.Customer, maxDistanceKm float64) [][]int {
	points := make([]point, len(customers))
	locate := func(i int) (models.Coordinates, bool) {
		if !points[i].done {
			// Past the deadline, remaining customers are left unlocated
			if ctx.Err() == nil {
				c := customers[i]
				points[i].coords, points[i].ok = g.geocoder.Geocode(ctx, c.Postcode, c.Country)
			}
			points[i].done = true
		}
		return points[i].coords, points[i].ok
	}

	grouped := make([]bool, len(customers))
	groups := make([][]int, 0)

	for seed := range customers {
		if grouped[seed] {
			continue
		}
		grouped[seed] = true
		group := []int{seed}

		seedCoords, ok := locate(seed)
		if !ok {
			log.Printf("[GROUPING] Seed not geocoded, kept alone: index=%d postcode=%q", seed, customers[seed].Postcode)
			groups = append(groups, group)
			continue
		}

		for idx := seed + 1; idx < len(customers); idx++ {
			if grouped[idx] {
				continue
			}
			coords, ok := locate(idx)
			if !ok {
				continue
			}
			if DistanceKm(seedCoords, coords) <= maxDistanceKm {
				group = append(group, idx)
				grouped[idx] = true
			}
		}

		groups = append(groups, group)
	}

	if err := ctx.Err(); err != nil {
		log.Printf("[GROUPING] Stopped geocoding early: count=%d err=%v", len(customers), err)
	}
	log.Printf("[GROUPING] Grouped customers: count=%d groups=%d max_distance_km=%.2f", len(customers), len(groups), maxDistanceKm)
	return groups
}
