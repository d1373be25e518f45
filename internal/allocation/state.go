// Package allocation implements the group-payment session: a state machine that
// takes a receipt's line items (or a single manual amount), lets the user edit
// them, assign each one to a person or an ad-hoc subgroup, and computes the
// per-person debts to commit to the ledger.
//
// A Session is used by one goroutine at a time.
package allocation

import (
	"errors"
	"fmt"
)

// State is the phase of a Session.
type State int

const (
	// StateDefault accepts a receipt image or manual entry.
	StateDefault State = iota
	// StateLoading waits for the extraction result; items cannot be edited.
	StateLoading
	// StateAnalysis edits items and assignments.
	StateAnalysis
	// StateSummary reviews computed debts before commit.
	StateSummary
	// StateCommitted and StateCancelled are terminal until Reset.
	StateCommitted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateLoading:
		return "loading"
	case StateAnalysis:
		return "analysis"
	case StateSummary:
		return "summary"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an operation is not allowed in the
// session's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrNothingToRetry is returned by Retry when no image is retained.
var ErrNothingToRetry = errors.New("no image to retry")

func transitionError(op string, from State) error {
	return fmt.Errorf("%w: %s not allowed in %s", ErrInvalidTransition, op, from)
}

// ValidationError is a user-input problem. Message is safe to show inline.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
