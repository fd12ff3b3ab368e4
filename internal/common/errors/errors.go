// Package errors provides the standardized error type returned by the HTTP API.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeEmailAlreadyRegistered ErrorCode = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"

	ErrCodeDatabaseQueryFailed ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeSessionStoreFailed  ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeAutomationFailed    ErrorCode = "AUTOMATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing resource error.
func NewNotFoundError(resource string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError creates an authentication error for missing or expired sessions.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Not authenticated",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailAlreadyRegisteredError creates a signup conflict error.
func NewEmailAlreadyRegisteredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailAlreadyRegistered,
		Message:   "Email already registered.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCredentialsError creates a login failure error. The message is
// identical for unknown emails and wrong passwords.
func NewInvalidCredentialsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCredentials,
		Message:   "Invalid email or password",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseQueryFailedError creates a retryable storage error.
func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session backend error.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAutomationFailedError creates the error surfaced by an on-demand pass
// that could not commit.
func NewAutomationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAutomationFailed,
		Message:   "automation failed to run",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Failed to send notification",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error code onto the HTTP status returned to clients.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeEmailAlreadyRegistered:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeSessionStoreFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeDatabaseQueryFailed, ErrCodeSessionStoreFailed, ErrCodeAutomationFailed, ErrCodeNotificationSendFailed:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeUnauthorized || code == ErrCodeInvalidCredentials || code == ErrCodeSessionStoreFailed:
		return "AUTH"
	case strings.HasPrefix(codeStr, "DATABASE_"):
		return "DATABASE"
	case code == ErrCodeAutomationFailed || strings.HasPrefix(codeStr, "NOTIFICATION_"):
		return "AUTOMATION"
	case code == ErrCodeValidationFailed || code == ErrCodeNotFound || code == ErrCodeEmailAlreadyRegistered:
		return "REQUEST"
	default:
		return "SYSTEM"
	}
}
