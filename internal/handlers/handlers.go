package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"route-logger/internal/database"
	"route-logger/internal/grouping"
	"route-logger/internal/routing"
)

// Handler provides common handler utilities and dependencies
type Handler struct {
	Roster               database.RosterRepository
	Grouper              *grouping.Grouper
	Planner              *routing.Planner
	DefaultMaxDistanceKm float64

	// HealthCheck reports on optional backing services. Nil means nothing to check.
	HealthCheck func(ctx context.Context) error
	Now         func() time.Time

	validate *validator.Validate
}

// New creates a handler with its request validator
func New(roster database.RosterRepository, grouper *grouping.Grouper, planner *routing.Planner, defaultMaxDistanceKm float64) *Handler {
	return &Handler{
		Roster:               roster,
		Grouper:              grouper,
		Planner:              planner,
		DefaultMaxDistanceKm: defaultMaxDistanceKm,
		Now:                  time.Now,
		validate:             validator.New(),
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// MessageResponse is returned by mutating endpoints
type MessageResponse struct {
	Message  string      `json:"message"`
	Customer interface{} `json:"customer,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleRefError maps customer lookup failures to 404 or 500
func (h *Handler) handleRefError(w http.ResponseWriter, err error) {
	var refErr *database.ErrUnknownCustomerRef
	if errors.As(err, &refErr) || h.checkNotFound(err) {
		h.handleNotFound(w, "Customer not found")
		return
	}
	h.handleInternalError(w, err)
}

// checkDeadline writes a 503 when the request context is done and reports whether it did
func (h *Handler) checkDeadline(w http.ResponseWriter, r *http.Request) bool {
	err := r.Context().Err()
	if err == nil {
		return false
	}
	log.Printf("[HTTP] %s %s: request budget exhausted err=%v", r.Method, r.URL.Path, err)
	h.writeError(w, http.StatusServiceUnavailable, "REQUEST_TIMEOUT", "The request took too long to complete. Please try again.", nil)
	return true
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// validateStruct runs struct tag validation and writes a 400 on failure
func (h *Handler) validateStruct(w http.ResponseWriter, req interface{}) bool {
	err := h.validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.handleValidationError(w, err.Error())
		return false
	}

	fields := make([]map[string]string, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, map[string]string{"field": fe.Field(), "rule": fe.Tag(), "param": fe.Param()})
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", strings.Join(msgs, "; "), fields)
	return false
}

// HandleHealthCheck handles GET /api/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	resp := map[string]string{}

	if h.HealthCheck != nil {
		resp["geocode_store"] = "connected"
		if err := h.HealthCheck(r.Context()); err != nil {
			log.Printf("[ERROR] Health check failed: err=%v", err)
			status = "degraded"
			resp["geocode_store"] = "error"
		}
	}

	resp["status"] = status
	resp["timestamp"] = h.Now().Format(time.RFC3339)
	h.writeJSON(w, http.StatusOK, resp)
}
