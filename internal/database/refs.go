package database

import (
	"fmt"
	"math"
	"strconv"

	"route-logger/internal/models"
)

// ErrUnknownCustomerRef is returned when a customer reference matches neither an id nor a roster position
type ErrUnknownCustomerRef struct {
	Ref any
}

func (e *ErrUnknownCustomerRef) Error() string {
	return fmt.Sprintf("unknown customer reference: %v", e.Ref)
}

// ResolveRefs looks up customers by id, or by zero-based roster position for integer references.
// Order and duplicates are preserved.
func ResolveRefs(roster []models.Customer, refs []any) ([]models.Customer, error) {
	byID := make(map[string]int, len(roster))
	for i, c := range roster {
		byID[c.ID] = i
	}

	out := make([]models.Customer, 0, len(refs))
	for _, ref := range refs {
		idx, ok := resolveRef(roster, byID, ref)
		if !ok {
			return nil, &ErrUnknownCustomerRef{Ref: ref}
		}
		out = append(out, roster[idx])
	}
	return out, nil
}

func resolveRef(roster []models.Customer, byID map[string]int, ref any) (int, bool) {
	switch v := ref.(type) {
	case string:
		if idx, ok := byID[v]; ok {
			return idx, true
		}
		if n, err := strconv.Atoi(v); err == nil {
			return position(roster, n)
		}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
			return position(roster, int(v))
		}
	case int:
		return position(roster, v)
	}
	return 0, false
}

func position(roster []models.Customer, n int) (int, bool) {
	if n < 0 || n >= len(roster) {
		return 0, false
	}
	return n, true
}
