// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
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
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrForbidden       = errors.New("forbidden")
	ErrIdentityMissing = errors.New("identity missing")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "rating", "access"
	Op      string // Operation that failed, e.g., "Accept", "Submit"
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

// Is implements errors.Is() matching.
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

// Student domain errors
var (
	ErrStudentNotFound     = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrApplicationNotFound = NewDomainError("student", "Accept", ErrNotFound, "no application found")
	ErrOfferNotValid       = NewDomainError("student", "Accept", ErrInvalidState, "admission has not been offered, or the offer expired")
	ErrInvalidStudentRef   = NewDomainError("student", "Resolve", ErrValidation, "student reference needs exactly one of id or username")
	ErrInvalidTrack        = NewDomainError("student", "Validate", ErrValidation, "unknown track")
	ErrInvalidReason       = NewDomainError("student", "Validate", ErrValidation, "unknown rejection reason")
)

// Rating domain errors
var (
	ErrInvalidRating = NewDomainError("rating", "Validate", ErrValueOutOfRange, "rating must be an int from 1 - 10")
	ErrAlreadyRated  = NewDomainError("rating", "Submit", ErrAlreadyExists, "reviewer has already rated this student")
	ErrInvalidPage   = NewDomainError("ranking", "Validate", ErrValidation, "skip and take cannot be negative")
)

// Access errors
var (
	ErrNotAuthorized    = NewDomainError("access", "Authorize", ErrForbidden, "caller lacks the required role")
	ErrReviewerIdentity = NewDomainError("access", "Identify", ErrIdentityMissing, "reviewers require username in token")
	ErrStudentIdentity  = NewDomainError("access", "Identify", ErrIdentityMissing, "students require username in token")
	ErrUnauthenticated  = NewDomainError("access", "Authenticate", ErrIdentityMissing, "missing or invalid bearer token")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsState checks if the error is an illegal transition.
func IsState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// Error codes surfaced to clients.
const (
	CodeForbidden       = "forbidden"
	CodeIdentityMissing = "identity_missing"
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeInvalidState    = "invalid_state"
	CodeAlreadyRated    = "already_rated"
	CodeInternal        = "internal_error"
)

// Code returns the stable client-facing code for err.
// Authorization is checked first so that a wrapped forbidden error never
// leaks as a more specific kind.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrIdentityMissing):
		return CodeIdentityMissing
	case IsValidation(err):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case IsState(err):
		return CodeInvalidState
	case IsAlreadyExists(err):
		return CodeAlreadyRated
	default:
		return CodeInternal
	}
}
