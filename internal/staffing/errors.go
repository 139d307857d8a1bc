package staffing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested event or assignment does not exist.
	ErrNotFound = errors.New("staffing: not found")
	// ErrQuotaExceeded is returned when a confirm would push the confirmed
	// count past the event's required resource count. No state changes.
	ErrQuotaExceeded = errors.New("staffing: confirmed quota exceeded")
	// ErrUnknownResource is returned when an operation references a resource
	// that is not present in the directory. No state changes.
	ErrUnknownResource = errors.New("staffing: unknown resource")
)

// PersistenceError reports that the aggregate-store write failed after the
// in-memory mutation and broadcast already happened. The caller should retry
// the write; the local state is not rolled back.
type PersistenceError struct {
	EventID string
	Err     error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("staffing: event %s write failed: %v", e.EventID, e.Err)
}

// Unwrap exposes the underlying store error.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
