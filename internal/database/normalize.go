package database

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"route-logger/internal/models"
)

const isoDate = "2006-01-02"

// ExpectedColumns are the roster columns every import must provide after header mapping
var ExpectedColumns = []string{
	"company",
	"account_number",
	"country",
	"postcode",
	"status",
	"current_spend",
	"tagged_customers",
	"date_of_last_visit",
	"visit_frequency",
	"next_due_date",
}

// optionalColumns are known extension columns written after the expected ones
var optionalColumns = []string{"area_code", "multi_site", "urgency"}

// columnAliases maps lower-cased spreadsheet headers to roster columns
var columnAliases = map[string]string{
	"company":                "company",
	"account_number":         "account_number",
	"country":                "country",
	"postcode":               "postcode",
	"status":                 "status",
	"current_year_spend":     "current_spend",
	"current_spend":          "current_spend",
	"tagged_customer":        "tagged_customers",
	"tagged_customers":       "tagged_customers",
	"date_of_last_visit":     "date_of_last_visit",
	"visit_frequency_(days)": "visit_frequency",
	"visit_frequency":        "visit_frequency",
	"next_due_date":          "next_due_date",
	"area_code":              "area_code",
	"multi_site?":            "multi_site",
	"multi_site":             "multi_site",
	"urgency":                "urgency",
	"id":                     "id",
}

// dateLayouts are tried in order; day-first wins over month-first for ambiguous values
var dateLayouts = []string{
	isoDate,
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
	"2/1/2006",
	"1/2/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// NormalizeHeader maps a raw header to its roster column name.
// Unknown headers are returned lower-cased and trimmed.
func NormalizeHeader(header string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	if mapped, ok := columnAliases[key]; ok {
		return mapped
	}
	soft := strings.ReplaceAll(key, " ", "_")
	if mapped, ok := columnAliases[soft]; ok {
		return mapped
	}
	return key
}

// MissingColumns returns the expected columns absent from the given raw headers
func MissingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[NormalizeHeader(h)] = true
	}

	var missing []string
	for _, col := range ExpectedColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func isBlank(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "nan", "none", "null", "nat", "<nil>":
		return true
	}
	return false
}

// ParseDate converts a date in any accepted layout to YYYY-MM-DD
func ParseDate(value string) (string, bool) {
	if isBlank(value) {
		return "", false
	}
	s := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// ParseBool accepts true/1/yes and false/0/no, case-insensitively
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	}
	return false, false
}

// ParseSpend parses a currency amount, ignoring symbols and thousands separators
func ParseSpend(value string) *float64 {
	if isBlank(value) {
		return nil
	}
	cleaned := strings.NewReplacer("£", "", "$", "", "€", "", ",", "", " ", "").Replace(value)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseFrequency parses a visit frequency in days. "56.0" is accepted.
func ParseFrequency(value string) *int {
	if isBlank(value) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	days := int(f)
	return &days
}

// NextDueDate returns lastVisit + frequency days, or "" when either is unusable
func NextDueDate(lastVisit string, frequencyDays int) string {
	iso, ok := ParseDate(lastVisit)
	if !ok {
		return ""
	}
	t, err := time.Parse(isoDate, iso)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, frequencyDays).Format(isoDate)
}

// FillNextDueDate computes next_due_date when it is absent and the inputs are present
func FillNextDueDate(c *models.Customer) {
	if c.NextDueDate != nil && *c.NextDueDate != "" {
		return
	}
	if c.DateOfLastVisit == nil || c.VisitFrequency == nil {
		return
	}
	if next := NextDueDate(*c.DateOfLastVisit, *c.VisitFrequency); next != "" {
		c.NextDueDate = &next
	}
}

func optionalDate(value string) *string {
	if iso, ok := ParseDate(value); ok {
		return &iso
	}
	return nil
}

// ApplyFields sets customer fields from raw column values. Keys are normalized first.
// When several keys map to the same field, a key already in canonical form wins.
func ApplyFields(c *models.Customer, fields map[string]string) {
	for _, rawKey := range applyOrder(fields) {
		value := fields[rawKey]
		key := NormalizeHeader(rawKey)
		switch key {
		case "id":
			if !isBlank(value) {
				c.ID = strings.TrimSpace(value)
			}
		case "company":
			c.Company = cleanString(value)
		case "account_number":
			c.AccountNumber = cleanString(value)
		case "country":
			c.Country = cleanString(value)
		case "postcode":
			c.Postcode = cleanString(value)
		case "status":
			c.Status = cleanString(value)
		case "current_spend":
			c.CurrentSpend = ParseSpend(value)
		case "tagged_customers":
			b, _ := ParseBool(value)
			c.TaggedCustomers = b
		case "date_of_last_visit":
			c.DateOfLastVisit = optionalDate(value)
		case "visit_frequency":
			c.VisitFrequency = ParseFrequency(value)
		case "next_due_date":
			c.NextDueDate = optionalDate(value)
		case "area_code":
			c.AreaCode = cleanString(value)
		case "multi_site":
			if b, ok := ParseBool(value); ok {
				c.MultiSite = &b
			} else {
				c.MultiSite = nil
			}
		case "urgency":
			c.Urgency = cleanString(value)
		default:
			if key == "" {
				continue
			}
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[key] = cleanString(value)
		}
	}
}

// applyOrder sorts keys so canonical ones are applied last
func applyOrder(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := isCanonicalKey(keys[i]), isCanonicalKey(keys[j])
		if ci != cj {
			return !ci
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isCanonicalKey(k string) bool {
	return strings.TrimSpace(k) == NormalizeHeader(k)
}

func cleanString(value string) string {
	if isBlank(value) {
		return ""
	}
	return strings.TrimSpace(value)
}

// FieldsFromJSON flattens a decoded JSON object into raw column values
func FieldsFromJSON(obj map[string]any) map[string]string {
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = val
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			fields[k] = strconv.FormatBool(val)
		case json.Number:
			fields[k] = val.String()
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			fields[k] = string(b)
		}
	}
	return fields
}

// RosterHeader returns the column order used when writing customers
func RosterHeader(customers []models.Customer) []string {
	header := append([]string{"id"}, ExpectedColumns...)
	header = append(header, optionalColumns...)

	extraSet := make(map[string]bool)
	for _, c := range customers {
		for k := range c.Extra {
			extraSet[k] = true
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	return append(header, extras...)
}

// FieldValue renders one column of a customer as text
func FieldValue(c *models.Customer, column string) string {
	switch column {
	case "id":
		return c.ID
	case "company":
		return c.Company
	case "account_number":
		return c.AccountNumber
	case "country":
		return c.Country
	case "postcode":
		return c.Postcode
	case "status":
		return c.Status
	case "current_spend":
		if c.CurrentSpend == nil {
			return ""
		}
		return strconv.FormatFloat(*c.CurrentSpend, 'f', -1, 64)
	case "tagged_customers":
		return strconv.FormatBool(c.TaggedCustomers)
	case "date_of_last_visit":
		return derefString(c.DateOfLastVisit)
	case "visit_frequency":
		if c.VisitFrequency == nil {
			return ""
		}
		return strconv.Itoa(*c.VisitFrequency)
	case "next_due_date":
		return derefString(c.NextDueDate)
	case "area_code":
		return c.AreaCode
	case "multi_site":
		if c.MultiSite == nil {
			return ""
		}
		return strconv.FormatBool(*c.MultiSite)
	case "urgency":
		return c.Urgency
	default:
		return c.Extra[column]
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CustomersFromRecords builds customers from header-keyed rows, filling missing due dates
func CustomersFromRecords(records []map[string]string) []models.Customer {
	customers := make([]models.Customer, 0, len(records))
	for _, rec := range records {
		var c models.Customer
		ApplyFields(&c, rec)
		FillNextDueDate(&c)
		customers = append(customers, c)
	}
	return customers
}
