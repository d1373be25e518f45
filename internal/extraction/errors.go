// Package extraction turns a receipt photo into line items using a multimodal
// model, and serves that pipeline over HTTP.
package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned by Services.Init when no model credential is configured.
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")
	// ErrNotInitialized is returned when Services is used before a successful Init.
	ErrNotInitialized = errors.New("extraction services not initialized")

	// ErrNoImage means the request carried no image.
	ErrNoImage = errors.New("no image data provided")
	// ErrInvalidImage means the image payload is not valid base64.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrNotAReceipt means the model judged the image not to be a receipt.
	ErrNotAReceipt = errors.New("image is not a receipt")
	// ErrSafetyBlocked means the model's content policy refused the request.
	ErrSafetyBlocked = errors.New("blocked by safety filter")
	// ErrMalformedOutput means the model's output failed parsing or validation.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrUpstream covers network, credential and other model failures.
	ErrUpstream = errors.New("upstream model failure")
)

// Error is an extraction failure classified by Kind, one of the sentinel errors above.
type Error struct {
	Kind error

	// Reason is the model-supplied explanation for ErrNotAReceipt and ErrSafetyBlocked.
	Reason string

	// Excerpt is a truncated prefix of the model output for ErrMalformedOutput.
	Excerpt string

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}
