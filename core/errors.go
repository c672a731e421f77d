/*
errors.go - Centralized error kinds for the ledger core

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every error a mutating operation can return falls into exactly one of
  four kinds:

    ErrValidation - malformed or out-of-range input, rejected before any
                    state change
    ErrNotFound   - a referenced id or plan does not exist
    ErrConflict   - the operation is well-formed but the domain forbids it
                    (completed plan, nothing to cancel, inverted window)
    ErrState      - persistence failed; in-memory state was rolled back

  Structured wrappers carry context and unwrap to the sentinel, so callers
  match with errors.Is / errors.As.

SEE ALSO:
  - validate.go: produces ValidationError
  - studio/manager.go: produces StateError on persistence failure
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input. No state was changed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation conflicts with domain rules,
	// e.g. generating the next installment of a completed plan.
	ErrConflict = errors.New("domain conflict")

	// ErrState is returned when durable persistence fails. The in-memory
	// state has been rolled back to the last durably saved snapshot.
	ErrState = errors.New("state persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed validation and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports which record was missing.
type NotFoundError struct {
	Kind string // "student", "cash", "installment plan"
	ID   ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports why the domain rejected an otherwise valid request.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StateError reports a persistence failure. Cause is retained for logging;
// callers should treat the operation as not having happened.
type StateError struct {
	Op    string
	Cause error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: state not persisted: %v", e.Op, e.Cause)
}

func (e *StateError) Unwrap() error { return ErrState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is the caller's fault
// (bad input or a domain conflict) rather than an engine failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict)
}
