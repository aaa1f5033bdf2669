// Package service provides business logic for the application.
package service

import (
	"errors"
	"sort"
	"strings"
)

// Service errors. Handlers translate these into HTTP responses.
var (
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrAccountNotFound       = errors.New("account not found")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInvalidKey            = errors.New("invalid API key")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassifierError       = errors.New("classifier error")
	ErrValidation            = errors.New("validation failed")
	ErrKeyLimitReached       = errors.New("API key limit reached")
)

// ValidationError lists invalid input fields. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Fields map[string]string // field name -> message
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	for i, name := range names {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteString(" ")
		b.WriteString(e.Fields[name])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
