// Package diagnostics persists extraction failures to an audit store for offline
// debugging. Writes are fire-and-forget: a failing store never affects the request
// that produced the record.
package diagnostics

import "time"

// Category classifies a diagnostic record.
type Category string

const (
	CategorySafetyBlock     Category = "safety_block"
	CategoryParseError      Category = "parse_error"
	CategoryValidationError Category = "validation_error"
	CategoryModelError      Category = "model_error"
	CategoryInternalError   Category = "internal_error"
)

// Record is one audit entry.
type Record struct {
	ID        string
	Timestamp time.Time
	Category  Category
	RequestID string
	Message   string

	// RawResponse is the full model output, kept for offline analysis only.
	RawResponse string

	// Stack is set for internal errors.
	Stack string

	// InputSize is the decoded image size in bytes.
	InputSize int
}
