// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// Progression errors
	ErrDuplicateAttempt = errors.New("simulation already attempted")

	// Concurrency errors. A conflict means another transaction won a write
	// race; the operation may be replayed with fresh state.
	ErrConflict = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrStorage            = errors.New("storage failure")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "attempt", "badge", "user"
	Op      string // Operation that failed, e.g., "Submit", "Award"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching on both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationError builds a validation failure for a single field.
func ValidationError(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// StorageError wraps a persistence failure.
func StorageError(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStorage, "storage operation failed", err)
}

// ConflictError wraps a lost write race.
func ConflictError(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrConflict, "concurrent update, retry", err)
}

// Attempt domain errors
var (
	ErrAttemptDuplicate  = NewDomainError("attempt", "Insert", ErrDuplicateAttempt, "simulation already attempted")
	ErrActionRequired    = NewDomainError("attempt", "Validate", ErrEmptyValue, "action is required")
	ErrNegativeTimeSpent = NewDomainError("attempt", "Validate", ErrNegativeValue, "time spent cannot be negative")
	ErrInvalidSimulation = NewDomainError("attempt", "Validate", ErrInvalidID, "invalid simulation ID")
	ErrInvalidUser       = NewDomainError("attempt", "Validate", ErrInvalidID, "invalid user ID")
	ErrConflictExhausted = NewDomainError("attempt", "Submit", ErrConflict, "too many concurrent updates, try again later")
)

// Simulation domain errors
var (
	ErrSimulationNotFound = NewDomainError("simulation", "Find", ErrNotFound, "simulation not found")
	ErrUnknownDifficulty  = NewDomainError("simulation", "Validate", ErrInvalidInput, "unknown difficulty")
)

// User domain errors
var (
	ErrUserNotFound = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrNegativeXP   = NewDomainError("user", "AddXP", ErrNegativeValue, "XP amount cannot be negative")
)

// Badge domain errors
var (
	ErrBadgeNotFound    = NewDomainError("badge", "Find", ErrNotFound, "badge not found")
	ErrInvalidBadgeRule = NewDomainError("badge", "Validate", ErrInvalidInput, "invalid badge rule")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsDuplicateAttempt reports a second submission for the same simulation.
func IsDuplicateAttempt(err error) bool {
	return errors.Is(err, ErrDuplicateAttempt)
}

// IsConflict reports a lost write race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsStorage reports a persistence failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsUnauthorized reports a missing or invalid identity.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
// Only write conflicts qualify; storage failures and duplicates never do.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) && !errors.Is(err, ErrDuplicateAttempt)
}
