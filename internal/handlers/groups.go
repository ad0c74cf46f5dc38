package handlers

import (
	"log"
	"net/http"

	"route-logger/internal/models"
)

// GroupRequest is the body of POST /api/groups
type GroupRequest struct {
	MaxDistanceKm *float64 `json:"max_distance_km" validate:"omitempty,gt=0,lte=20000"`
}

// HandleGroupCustomers handles POST /api/groups
func (h *Handler) HandleGroupCustomers(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := decodeBody(r, &req); err != nil {
		log.Printf("[HTTP] POST /api/groups: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if !h.validateStruct(w, req) {
		return
	}

	maxKm := h.DefaultMaxDistanceKm
	if req.MaxDistanceKm != nil {
		maxKm = *req.MaxDistanceKm
	}

	customers, err := h.Roster.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to load roster for grouping: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] POST /api/groups: customers=%d max_distance_km=%.2f", len(customers), maxKm)
	clusters := h.Grouper.Group(r.Context(), customers, maxKm)
	if h.checkDeadline(w, r) {
		return
	}

	groups := make([]models.CustomerGroup, 0, len(clusters))
	for i, indices := range clusters {
		members := make([]models.Customer, 0, len(indices))
		for _, idx := range indices {
			members = append(members, customers[idx])
		}
		groups = append(groups, models.CustomerGroup{
			GroupID:   i,
			Customers: members,
			Count:     len(members),
		})
	}

	h.writeJSON(w, http.StatusOK, groups)
}
