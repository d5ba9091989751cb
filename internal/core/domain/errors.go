// Package domain defines the core domain models for SnapKeeper.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SK-SNAP-5001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Describe returns the message and details without the error code.
func (e *DomainError) Describe() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrSnapshotInvalid indicates snapshot input failed validation.
	ErrSnapshotInvalid = NewDomainError("SK-SNAP-4001", "invalid snapshot")

	// ErrSnapshotNotFound indicates the snapshot does not exist.
	ErrSnapshotNotFound = NewDomainError("SK-SNAP-4040", "snapshot not found")

	// ErrEnumerateSnapshots indicates snapshots could not be listed.
	ErrEnumerateSnapshots = NewDomainError("SK-SNAP-5001", "failed to enumerate snapshots")

	// ErrCreateSnapshot indicates a snapshot could not be created.
	ErrCreateSnapshot = NewDomainError("SK-SNAP-5002", "failed to create snapshot")

	// ErrRestoreSnapshot indicates a snapshot could not be restored.
	ErrRestoreSnapshot = NewDomainError("SK-SNAP-5003", "failed to restore snapshot")

	// ErrDeleteSnapshot indicates a snapshot could not be deleted.
	ErrDeleteSnapshot = NewDomainError("SK-SNAP-5004", "failed to delete snapshot")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrConnectionNotFound indicates no connection is configured under the name.
	ErrConnectionNotFound = NewDomainError("SK-CONN-4040", "connection not configured")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrCatalog indicates a snapshot catalog failure.
	ErrCatalog = NewDomainError("SK-SYS-5001", "catalog error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SK-ARG-1002", "missing required argument")
)
