package booking

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers unknown references and tokens that are no longer active.
	ErrNotFound = errors.New("booking: reference not found")
	// ErrExpired is returned once a token is past its expiry.
	ErrExpired = errors.New("booking: reference expired")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "booking: invalid request: " + strings.Join(e.Details, "; ")
}

func invalid(details ...string) error {
	return &ValidationError{Details: details}
}
