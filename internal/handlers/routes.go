package handlers

import (
	"errors"
	"log"
	"net/http"

	"route-logger/internal/database"
	"route-logger/internal/routing"
)

// OptimizeRouteRequest is the body of POST /api/route/optimize.
// customer_ids entries are customer ids or zero-based roster positions.
type OptimizeRouteRequest struct {
	CustomerIDs   []any  `json:"customer_ids" validate:"max=500"`
	StartPostcode string `json:"start_postcode" validate:"max=64"`
	EndPostcode   string `json:"end_postcode" validate:"max=64"`
	StartCountry  string `json:"start_country" validate:"max=64"`
	EndCountry    string `json:"end_country" validate:"max=64"`
}

var waypointSuggestions = []string{
	"Check that the postcodes are spelled correctly",
	"Check that each customer's country matches its postcode",
	"Select more customers or add a start/end postcode",
}

func endpoint(postcode, country string) *routing.Endpoint {
	if postcode == "" {
		return nil
	}
	return &routing.Endpoint{Postcode: postcode, Country: country}
}

// HandleOptimizeRoute handles POST /api/route/optimize
func (h *Handler) HandleOptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRouteRequest
	if err := decodeBody(r, &req); err != nil {
		log.Printf("[HTTP] POST /api/route/optimize: invalid_body err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}
	if !h.validateStruct(w, req) {
		return
	}

	log.Printf("[HTTP] POST /api/route/optimize: customers=%d start=%q end=%q",
		len(req.CustomerIDs), req.StartPostcode, req.EndPostcode)

	roster, err := h.Roster.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to load roster for routing: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	selected, err := database.ResolveRefs(roster, req.CustomerIDs)
	if err != nil {
		var refErr *database.ErrUnknownCustomerRef
		if errors.As(err, &refErr) {
			h.writeError(w, http.StatusBadRequest, "UNKNOWN_CUSTOMER", err.Error(), map[string]interface{}{
				"ref": refErr.Ref,
			})
			return
		}
		h.handleInternalError(w, err)
		return
	}

	result, err := h.Planner.Plan(r.Context(), routing.PlanRequest{
		Customers: selected,
		Start:     endpoint(req.StartPostcode, req.StartCountry),
		End:       endpoint(req.EndPostcode, req.EndCountry),
	})
	if h.checkDeadline(w, r) {
		return
	}
	if err != nil {
		h.handleRouteError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// handleRouteError maps planner failures to structured 400 responses
func (h *Handler) handleRouteError(w http.ResponseWriter, err error) {
	var inputErr *routing.ErrInputInsufficient
	if errors.As(err, &inputErr) {
		log.Printf("[HTTP] Route rejected: requested=%d", inputErr.Requested)
		h.writeError(w, http.StatusBadRequest, "INPUT_INSUFFICIENT", err.Error(), map[string]interface{}{
			"requested": inputErr.Requested,
		})
		return
	}

	var wpErr *routing.ErrWaypointsInsufficient
	if errors.As(err, &wpErr) {
		log.Printf("[HTTP] Route rejected: valid=%d requested=%d failures=%d", wpErr.Valid, wpErr.Requested, len(wpErr.Failures))
		h.writeError(w, http.StatusBadRequest, "WAYPOINTS_INSUFFICIENT", err.Error(), map[string]interface{}{
			"failures":      wpErr.Failures,
			"requested":     wpErr.Requested,
			"valid":         wpErr.Valid,
			"success_ratio": wpErr.SuccessRatio(),
			"suggestions":   waypointSuggestions,
		})
		return
	}

	h.handleInternalError(w, err)
}
