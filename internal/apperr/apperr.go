// Package apperr defines the error taxonomy shared by the message core and the
// HTTP gateway.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication means the caller has no valid session.
	ErrAuthentication = errors.New("not authenticated")
	// ErrAuthorization means the caller may not act on the resource.
	ErrAuthorization = errors.New("not permitted")
	// ErrNotFound means the referenced message or user does not exist.
	// The gateway reports it exactly like ErrAuthorization.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries field-level messages that are shown to the caller verbatim.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Invalid builds a ValidationError from one or more messages.
func Invalid(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// StorageError wraps a persistence failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsDenied reports whether err should be surfaced as the generic denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrAuthorization) || errors.Is(err, ErrNotFound)
}
