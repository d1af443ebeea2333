package smoke

import (
	"fmt"
	"time"

	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// Outcome is the terminal state of one validation run
type Outcome string

const (
	// OutcomeSuccess means the table is present and holds enough rows
	OutcomeSuccess Outcome = "success"
	// OutcomeValidationFailure means the warehouse answered but the table
	// is missing, under-populated, or the query failed
	OutcomeValidationFailure Outcome = "validation_failure"
	// OutcomeConnectionFailure means the check never got a trustworthy
	// answer: bad configuration, failed authentication, or an interrupt
	OutcomeConnectionFailure Outcome = "connection_failure"
)

// Result is the full report of one validation run
type Result struct {
	RunID    string
	Outcome  Outcome
	Table    string
	User     string
	RowCount int64 // -1 until the counting query produced a number
	MinRows  int64
	Duration time.Duration
	Reason   string // human-readable failure description, empty on success
	Err      *errors.AppError
}

// ExitCode maps the outcome onto the process exit code
func (r *Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return errors.ExitSuccess
	case OutcomeValidationFailure:
		return errors.ExitValidationFailure
	default:
		return errors.ExitConnectionFailure
	}
}

// Summary renders the single final line printed on every exit path
func (r *Result) Summary() string {
	if r.Outcome == OutcomeSuccess {
		return fmt.Sprintf("SUCCESS: table %s contains %d rows (minimum %d)",
			r.Table, r.RowCount, r.MinRows)
	}
	return fmt.Sprintf("FAILURE: %s", r.Reason)
}

// outcomeForError derives the outcome from the failure class. Query-class
// errors mean the warehouse was reached, so they count as validation
// failures; everything else is a connection failure.
func outcomeForError(err *errors.AppError) Outcome {
	if err.Kind() == errors.KindQuery {
		return OutcomeValidationFailure
	}
	return OutcomeConnectionFailure
}
