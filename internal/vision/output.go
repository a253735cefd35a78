package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"motscan/internal/domain"
	"motscan/internal/port"
)

// modelOutput is the JSON structure every provider prompts for.
type modelOutput struct {
	Data             map[string]string  `json:"data"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	SoftwareDetected string             `json:"software_detected"`
}

// DecodeModelOutput parses the raw JSON text a model returned into a
// ModelResponse. NOT_FOUND and empty values are dropped so absent fields
// stay absent; confidences are clamped to [0,1].
func DecodeModelOutput(text string) (*port.ModelResponse, error) {
	var out modelOutput
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &out); err != nil {
		return nil, fmt.Errorf("parsing model JSON output: %w (raw: %s)", err, truncate(text, 500))
	}

	fields := make(map[string]port.FieldCandidate)
	for _, field := range domain.ExtractionFields {
		value, ok := out.Data[field]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || value == "NOT_FOUND" {
			continue
		}
		fields[field] = port.FieldCandidate{
			Value:      value,
			Confidence: clamp01(out.ConfidenceScores[field]),
		}
	}

	software := strings.TrimSpace(out.SoftwareDetected)
	if software == "NOT_FOUND" {
		software = ""
	}
	return &port.ModelResponse{Fields: fields, SoftwareDetected: software}, nil
}

// stripCodeFences removes a surrounding markdown code fence if the model
// ignored the no-fences instruction.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
