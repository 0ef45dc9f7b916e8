// Package domain defines the core domain models for PepTrackr.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes have the form "PT-<AREA>-<NNNN>" where the last four digits carry the
// HTTP-equivalent status followed by a discriminator (4040 -> 404).
type DomainError struct {
	Code    string // Error code (e.g., "PT-KV-4040")
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

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Store errors (KV).
var (
	// ErrEntryNotFound indicates the requested key is absent.
	ErrEntryNotFound = NewDomainError("PT-KV-4040", "Key not found")

	// ErrInvalidKey indicates the key is empty, too long or not UTF-8.
	ErrInvalidKey = NewDomainError("PT-KV-4001", "invalid key")

	// ErrInvalidValue indicates the value is not a well-formed JSON document.
	ErrInvalidValue = NewDomainError("PT-KV-4002", "invalid value")

	// ErrEntryConflict indicates an insert found the key already present.
	ErrEntryConflict = NewDomainError("PT-KV-4090", "key already exists")

	// ErrInvalidBackup indicates a backup document could not be understood.
	ErrInvalidBackup = NewDomainError("PT-KV-4003", "invalid backup document")
)

// System errors (SYS).
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("PT-SYS-5000", "internal server error")

	// ErrStorageError indicates the backing store failed or is unreachable.
	ErrStorageError = NewDomainError("PT-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("PT-SYS-5030", "service unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("PT-SYS-4000", "bad request")

	// ErrPayloadTooLarge indicates the request body exceeded the configured limit.
	ErrPayloadTooLarge = NewDomainError("PT-SYS-4130", "payload too large")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("PT-SYS-4290", "too many requests")
)
