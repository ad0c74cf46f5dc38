package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"route-logger/internal/database"
	"route-logger/internal/models"
)

const customersPathMarker = "/customers/"

// customerRef extracts the {ref} segment from /customers/{ref} or /api/customers/{ref}
func customerRef(path string) (string, bool) {
	idx := strings.LastIndex(path, customersPathMarker)
	if idx < 0 {
		return "", false
	}
	ref := strings.Trim(path[idx+len(customersPathMarker):], "/")
	if ref == "" || strings.Contains(ref, "/") {
		return "", false
	}
	return ref, true
}

// resolveCustomer loads the roster and finds the customer addressed by ref
func (h *Handler) resolveCustomer(r *http.Request, ref string) (*models.Customer, error) {
	roster, err := h.Roster.List(r.Context())
	if err != nil {
		return nil, err
	}
	found, err := database.ResolveRefs(roster, []any{ref})
	if err != nil {
		return nil, err
	}
	return &found[0], nil
}

// decodeFields reads a JSON object body into raw roster column values
func decodeFields(r *http.Request) (map[string]string, error) {
	var obj map[string]any
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		return nil, err
	}
	return database.FieldsFromJSON(obj), nil
}

// companyField returns the company value from raw fields and whether the key was present
func companyField(fields map[string]string) (string, bool) {
	for k, v := range fields {
		if database.NormalizeHeader(k) == "company" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// HandleListCustomers handles GET /api/customers
func (h *Handler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	log.Printf("[HTTP] GET /api/customers")

	customers, err := h.Roster.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to list customers: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Listed customers: count=%d", len(customers))
	h.writeJSON(w, http.StatusOK, customers)
}

// HandleGetCustomer handles GET /api/customers/{ref}
func (h *Handler) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	ref, ok := customerRef(r.URL.Path)
	if !ok {
		h.handleValidationError(w, "Invalid customer reference")
		return
	}

	log.Printf("[HTTP] GET /api/customers/{ref}: ref=%s", ref)
	customer, err := h.resolveCustomer(r, ref)
	if err != nil {
		log.Printf("[HTTP] Customer lookup failed: ref=%s err=%v", ref, err)
		h.handleRefError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, customer)
}

// HandleCreateCustomer handles POST /api/customers
func (h *Handler) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		log.Printf("[HTTP] POST /api/customers: invalid_body err=%v", err)
		h.handleValidationError(w, "Request body must be a JSON object")
		return
	}

	company, _ := companyField(fields)
	if err := h.validate.Var(company, "required"); err != nil {
		log.Printf("[HTTP] POST /api/customers: missing_fields company")
		h.handleValidationError(w, "company is required")
		return
	}

	customer, err := h.Roster.Create(r.Context(), fields)
	if err != nil {
		log.Printf("[ERROR] Failed to create customer: company=%q err=%v", company, err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Created customer: id=%s company=%q", customer.ID, customer.Company)
	h.writeJSON(w, http.StatusCreated, MessageResponse{
		Message:  "Customer added successfully",
		Customer: customer,
	})
}

// HandleUpdateCustomer handles PUT /api/customers/{ref}
func (h *Handler) HandleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	ref, ok := customerRef(r.URL.Path)
	if !ok {
		h.handleValidationError(w, "Invalid customer reference")
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		log.Printf("[HTTP] PUT /api/customers/{ref}: ref=%s invalid_body err=%v", ref, err)
		h.handleValidationError(w, "Request body must be a JSON object")
		return
	}
	if company, present := companyField(fields); present && company == "" {
		h.handleValidationError(w, "company cannot be empty")
		return
	}

	existing, err := h.resolveCustomer(r, ref)
	if err != nil {
		log.Printf("[HTTP] Customer lookup failed: ref=%s err=%v", ref, err)
		h.handleRefError(w, err)
		return
	}

	log.Printf("[HTTP] PUT /api/customers/{ref}: ref=%s id=%s fields=%d", ref, existing.ID, len(fields))
	customer, err := h.Roster.Update(r.Context(), existing.ID, fields)
	if err != nil {
		log.Printf("[ERROR] Failed to update customer: id=%s err=%v", existing.ID, err)
		h.handleRefError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, MessageResponse{
		Message:  "Customer updated successfully",
		Customer: customer,
	})
}

// HandleDeleteCustomer handles DELETE /api/customers/{ref}
func (h *Handler) HandleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	ref, ok := customerRef(r.URL.Path)
	if !ok {
		h.handleValidationError(w, "Invalid customer reference")
		return
	}

	existing, err := h.resolveCustomer(r, ref)
	if err != nil {
		log.Printf("[HTTP] Customer lookup failed: ref=%s err=%v", ref, err)
		h.handleRefError(w, err)
		return
	}

	log.Printf("[HTTP] DELETE /api/customers/{ref}: ref=%s id=%s", ref, existing.ID)
	if err := h.Roster.Delete(r.Context(), existing.ID); err != nil {
		log.Printf("[ERROR] Failed to delete customer: id=%s err=%v", existing.ID, err)
		h.handleRefError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Customer deleted successfully"})
}
