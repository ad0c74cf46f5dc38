package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"route-logger/internal/models"
)

// CSVStore keeps the customer roster in a single CSV file.
// Every operation reloads the file; writes replace it atomically.
// Two concurrent read-modify-write operations can still lose one update.
// Rows without an id get one derived from their position and contents; reads never
// write the file, and the derived ids are persisted by the next write.
type CSVStore struct {
	filePath string
	writeMu  sync.Mutex
	newID    func() string
}

// legacyIDSpace namespaces ids derived for rows saved before ids existed
var legacyIDSpace = uuid.MustParse("9b4f3c1e-7d2a-4e8b-a6c5-3f1d0e2b7a94")

func legacyID(pos int, c *models.Customer) string {
	return uuid.NewSHA1(legacyIDSpace, []byte(fmt.Sprintf("%d|%s|%s|%s", pos, c.Company, c.AccountNumber, c.Postcode))).String()
}

// NewCSVStore creates a roster store backed by the given file, creating its directory if needed
func NewCSVStore(filePath string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create roster directory: %w", err)
	}
	log.Printf("[ROSTER] Using roster file: %s", filePath)
	return &CSVStore{
		filePath: filePath,
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// Path returns the roster file location
func (s *CSVStore) Path() string {
	return s.filePath
}

// ParseCSV reads a CSV document into header-keyed rows, keeping the raw headers
func ParseCSV(r io.Reader) ([]string, []map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rowsToRecords(rows)
}

func rowsToRecords(rows [][]string) ([]string, []map[string]string, error) {
	headers := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return headers, records, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if !isBlank(cell) {
			return false
		}
	}
	return true
}

// ImportCSV parses an uploaded roster, rejecting it when required columns are missing
func ImportCSV(r io.Reader) ([]models.Customer, error) {
	headers, records, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	if missing := MissingColumns(headers); len(missing) > 0 {
		return nil, &ErrMissingColumns{Missing: missing}
	}
	return CustomersFromRecords(records), nil
}

// WriteCSV writes customers with the canonical roster header
func WriteCSV(w io.Writer, customers []models.Customer) error {
	header := RosterHeader(customers)
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	row := make([]string, len(header))
	for i := range customers {
		for j, col := range header {
			row[j] = FieldValue(&customers[i], col)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *CSVStore) load() ([]models.Customer, error) {
	f, err := os.Open(s.filePath)
	if os.IsNotExist(err) {
		return []models.Customer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	_, records, err := ParseCSV(f)
	if err != nil {
		return nil, err
	}
	customers := CustomersFromRecords(records)

	derived := 0
	for i := range customers {
		if customers[i].ID == "" {
			customers[i].ID = legacyID(i, &customers[i])
			derived++
		}
	}
	if derived > 0 {
		log.Printf("[ROSTER] Derived ids for %d customers without one", derived)
	}
	return customers, nil
}

func (s *CSVStore) save(customers []models.Customer) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := WriteCSV(tmp, customers); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *CSVStore) List(ctx context.Context) ([]models.Customer, error) {
	return s.load()
}

func (s *CSVStore) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	customers, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if customers[i].ID == id {
			return &customers[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *CSVStore) Create(ctx context.Context, fields map[string]string) (*models.Customer, error) {
	customers, err := s.load()
	if err != nil {
		return nil, err
	}

	var c models.Customer
	ApplyFields(&c, fields)
	c.ID = s.newID()
	FillNextDueDate(&c)

	customers = append(customers, c)
	if err := s.save(customers); err != nil {
		return nil, err
	}
	log.Printf("[ROSTER] Created customer: id=%s company=%q", c.ID, c.Company)
	return &c, nil
}

func (s *CSVStore) Update(ctx context.Context, id string, fields map[string]string) (*models.Customer, error) {
	customers, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range customers {
		if customers[i].ID != id {
			continue
		}
		ApplyFields(&customers[i], fields)
		customers[i].ID = id
		touched := make(map[string]bool, len(fields))
		for k := range fields {
			touched[NormalizeHeader(k)] = true
		}
		if !touched["next_due_date"] && (touched["date_of_last_visit"] || touched["visit_frequency"]) {
			customers[i].NextDueDate = nil
		}
		FillNextDueDate(&customers[i])

		if err := s.save(customers); err != nil {
			return nil, err
		}
		log.Printf("[ROSTER] Updated customer: id=%s", id)
		updated := customers[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (s *CSVStore) Delete(ctx context.Context, id string) error {
	customers, err := s.load()
	if err != nil {
		return err
	}

	for i := range customers {
		if customers[i].ID == id {
			customers = append(customers[:i], customers[i+1:]...)
			if err := s.save(customers); err != nil {
				return err
			}
			log.Printf("[ROSTER] Deleted customer: id=%s", id)
			return nil
		}
	}
	return ErrNotFound
}

// ReplaceAll overwrites the roster, assigning ids to customers that lack one
func (s *CSVStore) ReplaceAll(ctx context.Context, customers []models.Customer) error {
	out := make([]models.Customer, len(customers))
	copy(out, customers)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = s.newID()
		}
		FillNextDueDate(&out[i])
	}
	if err := s.save(out); err != nil {
		return err
	}
	log.Printf("[ROSTER] Replaced roster: %d customers", len(out))
	return nil
}
