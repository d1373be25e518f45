package extraction

import "context"

// ModelOutput is the raw result of one model call.
type ModelOutput struct {
	// Text is the model's answer, not yet sanitized.
	Text string

	// BlockReason is set when the model's safety layer refused the request.
	BlockReason string
}

// VisionModel answers a prompt about an image.
type VisionModel interface {
	Generate(ctx context.Context, image []byte, mimeType, prompt string) (*ModelOutput, error)
}
