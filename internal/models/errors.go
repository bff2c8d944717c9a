package models

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflicts with existing data")
)

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	if e.Reason == "" {
		return "missing required fields: " + strings.Join(e.Fields, ", ")
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
