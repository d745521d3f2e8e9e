package models

import (
	"errors"
	"strings"
)

// Attendance domain errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("class not found")
	ErrCorruptState       = errors.New("stored state is corrupt")
	ErrPersistenceFailure = errors.New("state changed but was not persisted")
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}
