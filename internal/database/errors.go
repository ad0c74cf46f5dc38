package database

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("entity not found")

// ErrMissingColumns is returned when an imported roster lacks required columns after mapping
type ErrMissingColumns struct {
	Missing []string
}

func (e *ErrMissingColumns) Error() string {
	return fmt.Sprintf("roster is missing required columns after mapping: %s", strings.Join(e.Missing, ", "))
}
