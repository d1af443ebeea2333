package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for categorization and exit mapping
type ErrorCode string

const (
	// Configuration errors
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION_FAILED"
	ErrConfigFile       ErrorCode = "CONFIG_FILE_ERROR"

	// Authentication errors
	ErrAuthFailed ErrorCode = "AUTH_FAILED"
	ErrAuthToken  ErrorCode = "AUTH_TOKEN_FAILED"

	// Query errors
	ErrQueryFailed       ErrorCode = "QUERY_FAILED"
	ErrQueryTimeout      ErrorCode = "QUERY_TIMEOUT"
	ErrInvalidIdentifier ErrorCode = "QUERY_INVALID_IDENTIFIER"
	ErrStatementFailed   ErrorCode = "STATEMENT_FAILED"
	ErrMalformedResult   ErrorCode = "QUERY_MALFORMED_RESULT"

	// Run lifecycle errors
	ErrInterrupted ErrorCode = "RUN_INTERRUPTED"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// AppError represents a structured application error with rich context
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for Go 1.13+ error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds contextual information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithTable adds the target table identifier to the error context
func (e *AppError) WithTable(table string) *AppError {
	return e.WithContext("table", table)
}

// NewError creates a new AppError with the given code and message
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  getDefaultSeverity(code),
		Timestamp: time.Now(),
	}
}

// NewErrorWithCause creates a new AppError wrapping an existing error
func NewErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  getDefaultSeverity(code),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewAuthError creates an authentication error wrapping the failure that
// prevented the workspace session from being established
func NewAuthError(operation string, cause error) *AppError {
	return &AppError{
		Code:      ErrAuthFailed,
		Message:   fmt.Sprintf("Authentication %s failed", operation),
		Details:   cause.Error(),
		Severity:  SeverityHigh,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewStatementError creates an error for a statement the warehouse reported
// as failed. The service-side message is attached when the service provided one.
func NewStatementError(state, serviceMessage string) *AppError {
	e := &AppError{
		Code:      ErrStatementFailed,
		Message:   fmt.Sprintf("Statement execution finished in state %s", state),
		Severity:  SeverityHigh,
		Timestamp: time.Now(),
	}
	if serviceMessage != "" {
		e.Details = serviceMessage
	}
	return e
}

// NewIdentifierError creates an error for a table identifier that does not
// resolve to catalog.schema.table
func NewIdentifierError(identifier, reason string) *AppError {
	e := NewError(ErrInvalidIdentifier, "invalid table identifier format")
	e.Details = reason
	return e.WithTable(identifier)
}

// getDefaultSeverity returns the default severity for an error code
func getDefaultSeverity(code ErrorCode) ErrorSeverity {
	switch code {
	case ErrConfigValidation, ErrConfigFile, ErrInvalidIdentifier:
		return SeverityLow
	case ErrAuthFailed, ErrAuthToken, ErrStatementFailed:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
