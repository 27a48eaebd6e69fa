package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/locking"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when the actor may not perform an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthorized is returned when no actor was resolved for the request
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConcurrentModification is returned when a status compare-and-swap loses a race
	ErrConcurrentModification = errors.New("entity was modified by another request, reload and try again")

	ErrUnitNotAvailable     = errors.New("unit is not available")
	ErrReservationNotActive = errors.New("reservation is not active")
	// ErrReservationConverted blocks deleting a reservation that a sale depends on
	ErrReservationConverted = errors.New("reservation has been converted to a sale, delete the sale first")

	// ErrHasDependents is returned when a delete would orphan dependent records
	ErrHasDependents = errors.New("record is still referenced")

	ErrDuplicateClient = errors.New("a client with this phone number already exists")

	// ErrTransitionNotRetryable is returned when retrying a journal entry that is not failed
	ErrTransitionNotRetryable = errors.New("only failed transitions can be retried")

	ErrContractNotFound = errors.New("sale has no contract document")
)

// ValidationError reports bad or missing input. It is never retried.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for one field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another invalid field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field was rejected
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// DependencyError reports a failed datastore or storage call
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// ConsistencyWarning is returned alongside a successful result when the primary write
// committed but a follow-through step failed. Callers must surface it.
type ConsistencyWarning struct {
	Op     string
	Detail string
	Err    error
}

func (e *ConsistencyWarning) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
}

func (e *ConsistencyWarning) Unwrap() error {
	return e.Err
}

// IsConsistencyWarning reports whether err only signals a follow-through failure
func IsConsistencyWarning(err error) bool {
	var warning *ConsistencyWarning
	return errors.As(err, &warning)
}

// translateStoreError maps repository and lock errors onto the service taxonomy
func translateStoreError(op, entity string, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		dependencyErr *DependencyError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &notFoundErr), errors.As(err, &dependencyErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, repository.ErrStatusChanged):
		return ErrConcurrentModification
	case errors.Is(err, locking.ErrUnitBusy),
		errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrUnitNotAvailable),
		errors.Is(err, ErrReservationNotActive),
		errors.Is(err, ErrReservationConverted),
		errors.Is(err, ErrPermissionDenied):
		return err
	default:
		return &DependencyError{Op: op, Err: err}
	}
}
