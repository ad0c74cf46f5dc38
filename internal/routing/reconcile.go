package routing

import (
	"log"

	"route-logger/internal/metrics"
	"route-logger/internal/models"
)

// Reconcile maps an optimizer permutation over the interior waypoints back onto the
// geocoded customers. It returns the customers in route order and whether the
// permutation was applied; an invalid or missing permutation keeps the given order.
func Reconcile(customers []models.Customer, order []int, mode BoundaryMode) ([]models.Customer, bool) {
	var (
		result []models.Customer
		ok     bool
	)
	switch mode {
	case BothFixed:
		result, ok = reconcileBothFixed(customers, order)
	case StartFixed:
		result, ok = reconcileStartFixed(customers, order)
	case EndFixed:
		result, ok = reconcileEndFixed(customers, order)
	default:
		result, ok = reconcileNeitherFixed(customers, order)
	}

	if !ok {
		if len(order) > 0 {
			metrics.ReconcileFallbacksTotal.Inc()
			log.Printf("[ROUTING] Optimizer order rejected, keeping selection order: mode=%s customers=%d order=%v", mode, len(customers), order)
		}
		return identity(customers), false
	}
	return result, true
}

// All customers are interior
func reconcileBothFixed(customers []models.Customer, order []int) ([]models.Customer, bool) {
	if len(customers) == 0 {
		return nil, false
	}
	return permute(customers, order)
}

// The last customer is the implicit end
func reconcileStartFixed(customers []models.Customer, order []int) ([]models.Customer, bool) {
	n := len(customers)
	if n < 2 {
		return nil, false
	}
	middle, ok := permute(customers[:n-1], order)
	if !ok {
		return nil, false
	}
	return append(middle, customers[n-1]), true
}

// The first customer is the implicit start
func reconcileEndFixed(customers []models.Customer, order []int) ([]models.Customer, bool) {
	n := len(customers)
	if n < 2 {
		return nil, false
	}
	middle, ok := permute(customers[1:], order)
	if !ok {
		return nil, false
	}
	return append([]models.Customer{customers[0]}, middle...), true
}

// The first and last customers are the implicit start and end
func reconcileNeitherFixed(customers []models.Customer, order []int) ([]models.Customer, bool) {
	n := len(customers)
	if n < 3 {
		return nil, false
	}
	middle, ok := permute(customers[1:n-1], order)
	if !ok {
		return nil, false
	}
	out := make([]models.Customer, 0, n)
	out = append(out, customers[0])
	out = append(out, middle...)
	return append(out, customers[n-1]), true
}

// permute applies order to interior. order must be a full permutation of its indices.
func permute(interior []models.Customer, order []int) ([]models.Customer, bool) {
	if len(order) != len(interior) || len(order) == 0 {
		return nil, false
	}
	seen := make([]bool, len(interior))
	out := make([]models.Customer, 0, len(interior))
	for _, idx := range order {
		if idx < 0 || idx >= len(interior) || seen[idx] {
			return nil, false
		}
		seen[idx] = true
		out = append(out, interior[idx])
	}
	return out, true
}

func identity(customers []models.Customer) []models.Customer {
	out := make([]models.Customer, len(customers))
	copy(out, customers)
	return out
}
