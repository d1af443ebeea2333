package errors

import (
	"context"
	stderrors "errors"
)

// Kind groups error codes into the failure classes the exit code derives from
type Kind string

const (
	KindConfig    Kind = "config"
	KindAuth      Kind = "auth"
	KindQuery     Kind = "query"
	KindInterrupt Kind = "interrupt"
	KindUnknown   Kind = "unknown"
)

// Process exit codes. Query-class failures mean the warehouse was reached but
// the data did not validate; everything else means the check never got a
// trustworthy answer.
const (
	ExitSuccess           = 0
	ExitValidationFailure = 1
	ExitConnectionFailure = 2
)

// KindOf returns the failure class for an error code
func KindOf(code ErrorCode) Kind {
	switch code {
	case ErrConfigValidation, ErrConfigFile:
		return KindConfig
	case ErrAuthFailed, ErrAuthToken:
		return KindAuth
	case ErrQueryFailed, ErrQueryTimeout, ErrInvalidIdentifier, ErrStatementFailed, ErrMalformedResult:
		return KindQuery
	case ErrInterrupted:
		return KindInterrupt
	default:
		return KindUnknown
	}
}

// Kind returns the failure class of the error
func (e *AppError) Kind() Kind {
	return KindOf(e.Code)
}

// Classify converts any error into an AppError. Errors that already carry a
// code pass through unchanged; context cancellation maps onto the interrupt
// code so an external stop is never reported as a data problem.
func Classify(err error, fallback ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return NewErrorWithCause(ErrInterrupted, "Validation interrupted", err)
	case stderrors.Is(err, context.DeadlineExceeded) && KindOf(fallback) == KindQuery:
		return NewErrorWithCause(ErrQueryTimeout, message, err)
	default:
		return NewErrorWithCause(fallback, message, err)
	}
}

// ExitCodeFor maps an error to the process exit code. Query-class errors are
// validation failures (exit 1); config, auth, interrupt and unclassified
// errors are connection failures (exit 2). A clean run exits 0.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if appErr.Kind() == KindQuery {
			return ExitValidationFailure
		}
		return ExitConnectionFailure
	}

	return ExitConnectionFailure
}
