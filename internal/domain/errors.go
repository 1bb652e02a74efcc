package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrValidation           = errors.New("validation error")
	ErrMalformedRange       = errors.New("malformed time range")
	ErrDanglingReference    = errors.New("dangling reference")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrFlowReadOnly         = errors.New("flow is read-only")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrStorageConflict      = errors.New("storage conflict")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// MalformedRangeError reports a TimeRange that failed to parse or violated
// the bound ordering invariant.
type MalformedRangeError struct {
	Input  string
	Reason string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("malformed time range %q: %s", e.Input, e.Reason)
}

func (e *MalformedRangeError) Unwrap() error { return ErrMalformedRange }

// NewMalformedRangeError creates a MalformedRangeError.
func NewMalformedRangeError(input, reason string) *MalformedRangeError {
	return &MalformedRangeError{Input: input, Reason: reason}
}

// DanglingReferenceError reports an attempt to reference an entity that does
// not exist or has been soft-deleted.
type DanglingReferenceError struct {
	Entity string
	ID     uuid.UUID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s %s: referenced entity does not exist or is deleted", e.Entity, e.ID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// NewDanglingReferenceError creates a DanglingReferenceError.
func NewDanglingReferenceError(entity string, id uuid.UUID) *DanglingReferenceError {
	return &DanglingReferenceError{Entity: entity, ID: id}
}

// ReferentialIntegrityError reports a delete blocked by live dependents.
type ReferentialIntegrityError struct {
	Entity     string
	ID         uuid.UUID
	Dependents string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: still referenced by active %s", e.Entity, e.ID, e.Dependents)
}

func (e *ReferentialIntegrityError) Unwrap() error { return ErrReferentialIntegrity }

// NewReferentialIntegrityError creates a ReferentialIntegrityError.
func NewReferentialIntegrityError(entity string, id uuid.UUID, dependents string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{Entity: entity, ID: id, Dependents: dependents}
}
