package port

import (
	"context"
	"time"
)

// ExtractInput is the screenshot handed to a vision model.
type ExtractInput struct {
	ImageData   []byte
	ContentType string
}

// FieldCandidate is one model's answer for one field.
type FieldCandidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ModelResponse is the parsed output of a single vision model call.
// Fields only contains keys the model actually found; absent and
// NOT_FOUND fields are omitted.
type ModelResponse struct {
	Fields           map[string]FieldCandidate `json:"fields"`
	SoftwareDetected string                    `json:"software_detected,omitempty"`
}

// VisionModel is a single vision-LLM backend capable of extracting
// structured fields from a garage-software screenshot.
type VisionModel interface {
	// Name returns the stable identifier used for weighting, priority
	// tie-breaks and audit (e.g. "claude", "openai", "gemini").
	Name() string

	// Weight returns the model's static ensemble weight.
	Weight() float64

	// Timeout returns the per-call deadline for this backend.
	Timeout() time.Duration

	// Extract runs one extraction call. Implementations must honor ctx
	// cancellation and return typed errors for rate limiting.
	Extract(ctx context.Context, input ExtractInput) (*ModelResponse, error)
}
