package extraction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/debtbook/internal/diagnostics"
	"github.com/mmynk/debtbook/internal/metrics"
	"github.com/mmynk/debtbook/internal/models"
	"github.com/mmynk/debtbook/internal/receipt"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

type requestIDKey struct{}

// WithRequestID tags ctx with the id used to correlate logs and diagnostic records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Extractor runs the image -> model -> sanitize -> validate pipeline.
type Extractor struct {
	model       VisionModel
	diagnostics *diagnostics.Dispatcher
	timeout     time.Duration
}

// NewExtractor creates an extractor. A nil dispatcher disables diagnostics.
func NewExtractor(model VisionModel, diag *diagnostics.Dispatcher, timeout time.Duration) *Extractor {
	if diag == nil {
		diag = diagnostics.NewDisabled()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{model: model, diagnostics: diag, timeout: timeout}
}

// Extract returns the line items on the receipt in imageBase64. Every failure is
// an *Error whose Kind is one of the package sentinels; failures past input
// validation are also recorded to diagnostics.
func (e *Extractor) Extract(ctx context.Context, imageBase64 string) ([]models.LineItem, error) {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	image, mimeType, err := DecodeImage(imageBase64)
	if err != nil {
		return nil, &Error{Kind: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.model.Generate(callCtx, image, mimeType, Prompt)
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err == nil && out == nil {
		err = errors.New("model returned no output")
	}
	if err != nil {
		e.diagnostics.Log(diagnostics.Record{
			Category:  diagnostics.CategoryModelError,
			RequestID: requestID,
			Message:   err.Error(),
			InputSize: len(image),
		})
		return nil, &Error{Kind: ErrUpstream, Err: err}
	}

	if out.BlockReason != "" {
		slog.Warn("Receipt blocked by safety filter", "request_id", requestID, "reason", out.BlockReason)
		e.diagnostics.Log(diagnostics.Record{
			Category:  diagnostics.CategorySafetyBlock,
			RequestID: requestID,
			Message:   out.BlockReason,
			InputSize: len(image),
		})
		return nil, &Error{Kind: ErrSafetyBlocked, Reason: out.BlockReason}
	}

	res, err := receipt.Parse(out.Text)
	if err != nil {
		category := diagnostics.CategoryParseError
		if errors.Is(err, receipt.ErrSchema) {
			category = diagnostics.CategoryValidationError
		}
		slog.Warn("Model output rejected",
			"request_id", requestID,
			"category", category,
			"error", err,
		)
		e.diagnostics.Log(diagnostics.Record{
			Category:    category,
			RequestID:   requestID,
			Message:     err.Error(),
			RawResponse: out.Text,
			InputSize:   len(image),
		})
		return nil, &Error{
			Kind:    ErrMalformedOutput,
			Excerpt: receipt.Excerpt(out.Text, receipt.ExcerptLength),
			Err:     err,
		}
	}

	if res.Kind == receipt.KindDeclaredError {
		return nil, &Error{Kind: ErrNotAReceipt, Reason: res.DeclaredError}
	}

	items := res.Items
	if items == nil {
		items = []models.LineItem{}
	}
	return items, nil
}

// LogInternal records an unexpected failure with its stack trace.
func (e *Extractor) LogInternal(requestID, message, stack string, inputSize int) {
	e.diagnostics.Log(diagnostics.Record{
		Category:  diagnostics.CategoryInternalError,
		RequestID: requestID,
		Message:   message,
		Stack:     stack,
		InputSize: inputSize,
	})
}
