package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or conflicting input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to a zone or record that does not exist.
	ErrNotFound = errors.New("not found")
)

// Entity names what a NotFoundError was looking for.
type Entity string

const (
	EntityZone   Entity = "zone"
	EntityRecord Entity = "record"
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing zone or record.
type NotFoundError struct {
	Kind Entity
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %q", e.Kind, ErrNotFound, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ZoneNotFound returns a NotFoundError for a zone.
func ZoneNotFound(name string) *NotFoundError {
	return &NotFoundError{Kind: EntityZone, Key: name}
}

// RecordNotFound returns a NotFoundError for a record. Token lookups pass an empty key
// so secrets never end up in error strings.
func RecordNotFound(id string) *NotFoundError {
	return &NotFoundError{Kind: EntityRecord, Key: id}
}
