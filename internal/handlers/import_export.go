package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"route-logger/internal/database"
	"route-logger/internal/models"
)

const (
	maxUploadBytes = 32 << 20
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var importHint = "Your file should include these columns (case-insensitive): " +
	strings.Join(database.ExpectedColumns, ", ") +
	". Common variants like 'Current Year Spend' or 'Visit Frequency (Days)' are also accepted."

// handleImportError maps parse failures to a 400 response
func (h *Handler) handleImportError(w http.ResponseWriter, err error) {
	var missing *database.ErrMissingColumns
	if errors.As(err, &missing) {
		h.writeError(w, http.StatusBadRequest, "MISSING_COLUMNS", "Roster is missing required columns after mapping.", map[string]interface{}{
			"missing": missing.Missing,
			"hint":    importHint,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, "IMPORT_FAILED", err.Error(), nil)
}

// HandleImportCustomers handles POST /api/customers/import (multipart "file", CSV or XLSX)
func (h *Handler) HandleImportCustomers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Printf("[HTTP] POST /api/customers/import: invalid_form err=%v", err)
		h.handleValidationError(w, "No file provided")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleValidationError(w, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.handleValidationError(w, "No file selected")
		return
	}

	var customers []models.Customer
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".xlsx", ".xlsm":
		customers, err = database.ImportXLSX(file)
	case ".csv", ".txt", "":
		customers, err = database.ImportCSV(file)
	default:
		h.writeError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", fmt.Sprintf("Unsupported file type %q, upload a .csv or .xlsx file", ext), nil)
		return
	}
	if err != nil {
		log.Printf("[HTTP] POST /api/customers/import: file=%s err=%v", header.Filename, err)
		h.handleImportError(w, err)
		return
	}

	if err := h.Roster.ReplaceAll(r.Context(), customers); err != nil {
		log.Printf("[ERROR] Failed to save imported roster: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Imported customers: file=%s count=%d", header.Filename, len(customers))
	h.writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Imported %d customers successfully", len(customers)),
	})
}

// HandleImportCustomersRaw handles POST /api/customers/import/raw (JSON array of objects)
func (h *Handler) HandleImportCustomersRaw(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		h.handleValidationError(w, "No data provided")
		return
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		h.handleValidationError(w, "Data must be an array of customer objects")
		return
	}
	if len(items) == 0 {
		h.handleValidationError(w, "Data array is empty")
		return
	}

	var headers []string
	seen := make(map[string]bool)
	records := make([]map[string]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			h.handleValidationError(w, "Data must be an array of customer objects")
			return
		}
		fields := database.FieldsFromJSON(item)
		for k := range fields {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
		records = append(records, fields)
	}

	if missing := database.MissingColumns(headers); len(missing) > 0 {
		log.Printf("[HTTP] POST /api/customers/import/raw: missing=%v", missing)
		h.handleImportError(w, &database.ErrMissingColumns{Missing: missing})
		return
	}

	customers := database.CustomersFromRecords(records)
	if err := h.Roster.ReplaceAll(r.Context(), customers); err != nil {
		log.Printf("[ERROR] Failed to save imported roster: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Imported raw customers: count=%d", len(customers))
	h.writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Imported %d customers successfully", len(customers)),
	})
}

// HandleExportCustomers handles GET /api/customers/export?format=csv|xlsx
func (h *Handler) HandleExportCustomers(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		h.handleValidationError(w, "format must be csv or xlsx")
		return
	}

	customers, err := h.Roster.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] Failed to load roster for export: err=%v", err)
		h.handleInternalError(w, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = xlsxMediaType
		err = database.WriteXLSX(&buf, customers)
	} else {
		err = database.WriteCSV(&buf, customers)
	}
	if err != nil {
		log.Printf("[ERROR] Failed to export roster: format=%s err=%v", format, err)
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] Exported customers: format=%s count=%d bytes=%d", format, len(customers), buf.Len())
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", database.ExportFileName, format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
