package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind Kind
	}{
		{ErrConfigValidation, KindConfig},
		{ErrConfigFile, KindConfig},
		{ErrAuthFailed, KindAuth},
		{ErrAuthToken, KindAuth},
		{ErrQueryFailed, KindQuery},
		{ErrQueryTimeout, KindQuery},
		{ErrInvalidIdentifier, KindQuery},
		{ErrStatementFailed, KindQuery},
		{ErrMalformedResult, KindQuery},
		{ErrInterrupted, KindInterrupt},
		{ErrorCode("SOMETHING_ELSE"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.code))
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no error", err: nil, want: ExitSuccess},
		{name: "config error", err: NewError(ErrConfigValidation, "missing keys"), want: ExitConnectionFailure},
		{name: "auth error", err: NewAuthError("token exchange", fmt.Errorf("connection refused")), want: ExitConnectionFailure},
		{name: "query error", err: NewError(ErrQueryFailed, "listing tables failed"), want: ExitValidationFailure},
		{name: "identifier error", err: NewIdentifierError("a.b.c.d", "too many parts"), want: ExitValidationFailure},
		{name: "statement error", err: NewStatementError("FAILED", "TABLE_OR_VIEW_NOT_FOUND"), want: ExitValidationFailure},
		{name: "interrupt", err: NewErrorWithCause(ErrInterrupted, "stopped", context.Canceled), want: ExitConnectionFailure},
		{name: "wrapped app error", err: fmt.Errorf("run failed: %w", NewError(ErrQueryTimeout, "timed out")), want: ExitValidationFailure},
		{name: "untyped error", err: fmt.Errorf("something unexpected"), want: ExitConnectionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestClassifyPreservesTypedErrors(t *testing.T) {
	typed := NewIdentifierError("onlytable", "expected catalog.schema.table")

	got := Classify(fmt.Errorf("checking table: %w", typed), ErrQueryFailed, "table check failed")

	assert.Equal(t, typed, got)
	assert.Equal(t, ErrInvalidIdentifier, got.Code)
}

func TestClassifyContextErrors(t *testing.T) {
	canceled := Classify(context.Canceled, ErrQueryFailed, "count failed")
	assert.Equal(t, ErrInterrupted, canceled.Code)
	assert.Equal(t, ExitConnectionFailure, ExitCodeFor(canceled))

	timedOut := Classify(context.DeadlineExceeded, ErrQueryFailed, "count timed out")
	assert.Equal(t, ErrQueryTimeout, timedOut.Code)
	assert.Equal(t, ExitValidationFailure, ExitCodeFor(timedOut))

	// A deadline during a non-query step keeps the step's own class.
	authDeadline := Classify(context.DeadlineExceeded, ErrAuthFailed, "identity check timed out")
	assert.Equal(t, ErrAuthFailed, authDeadline.Code)
	assert.Equal(t, ExitConnectionFailure, ExitCodeFor(authDeadline))
}

func TestClassifyUntypedError(t *testing.T) {
	got := Classify(fmt.Errorf("boom"), ErrQueryFailed, "count failed")

	assert.Equal(t, ErrQueryFailed, got.Code)
	assert.Equal(t, "count failed", got.Message)
	assert.ErrorContains(t, got, "boom")
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewAuthError("identity check", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "AUTH_FAILED")
	assert.Contains(t, err.Error(), "connection refused")
}
