package handlers

import (
	"log"
	"net/http"

	"route-logger/internal/models"
)

// HandleOverdueCustomers handles GET /api/overdue.
// A customer is overdue when its next due date is strictly before today.
func (h *Handler) HandleOverdueCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Roster.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to load roster for overdue check: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	today := h.Now().Format("2006-01-02")
	overdue := make([]models.Customer, 0)
	for _, c := range customers {
		if c.NextDueDate != nil && *c.NextDueDate != "" && *c.NextDueDate < today {
			overdue = append(overdue, c)
		}
	}

	log.Printf("[HTTP] GET /api/overdue: today=%s overdue=%d of %d", today, len(overdue), len(customers))
	h.writeJSON(w, http.StatusOK, overdue)
}
