package ensemble

import (
	"fmt"
	"sort"
)

// Decision is the final confidence-gated verdict for one extraction.
type Decision struct {
	OverallConfidence    float64  `json:"overall_confidence"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	Reasons              []string `json:"reasons,omitempty"`
}

// DecisionConfig holds the thresholds the review gate applies.
type DecisionConfig struct {
	// RequiredFields must all be present for automatic acceptance. Overall
	// confidence is the weighted average over these fields.
	RequiredFields []string

	// FieldWeights gives per-field importance. Fields absent from the map
	// weigh 1.
	FieldWeights map[string]float64

	// MinConfidenceScore is the acceptance floor for overall confidence.
	MinConfidenceScore float64

	// MinAgreementLevel is the per-field floor below which the extraction
	// is flagged regardless of confidence.
	MinAgreementLevel float64

	// MaxDistinctValues flags a field whose candidates scattered over more
	// normalized values than this, a sign of a noisy screenshot.
	MaxDistinctValues int
}

// DecisionEngine gates extraction results into accept vs manual review.
// Pure and total: it performs no I/O and always returns a decision,
// flagging for review whenever its inputs are incomplete or ambiguous.
type DecisionEngine struct {
	cfg DecisionConfig
}

// NewDecisionEngine creates a DecisionEngine.
func NewDecisionEngine(cfg DecisionConfig) *DecisionEngine {
	return &DecisionEngine{cfg: cfg}
}

// Decide computes overall confidence and the manual-review flag.
func (d *DecisionEngine) Decide(perField map[string]FieldConsensus, validation ValidationOutcome) Decision {
	var decision Decision

	weightSum := 0.0
	confidenceSum := 0.0
	for _, field := range d.cfg.RequiredFields {
		weight := 1.0
		if w, ok := d.cfg.FieldWeights[field]; ok {
			weight = w
		}
		weightSum += weight
		fc, ok := perField[field]
		if !ok {
			decision.Reasons = append(decision.Reasons, fmt.Sprintf("required field %s missing", field))
			continue
		}
		confidenceSum += weight * fc.AggregatedConfidence
	}
	if weightSum > 0 {
		decision.OverallConfidence = confidenceSum / weightSum
	}

	if decision.OverallConfidence < d.cfg.MinConfidenceScore {
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("overall confidence %.2f below threshold %.2f", decision.OverallConfidence, d.cfg.MinConfidenceScore))
	}
	if !validation.Unavailable && !validation.IsConsistent {
		decision.Reasons = append(decision.Reasons, "registry cross-validation mismatch")
	}

	fields := make([]string, 0, len(perField))
	for field := range perField {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fc := perField[field]
		if fc.AgreementLevel < d.cfg.MinAgreementLevel {
			decision.Reasons = append(decision.Reasons,
				fmt.Sprintf("field %s agreement %.2f below minimum", field, fc.AgreementLevel))
		}
		if d.cfg.MaxDistinctValues > 0 && fc.DistinctValues > d.cfg.MaxDistinctValues {
			decision.Reasons = append(decision.Reasons,
				fmt.Sprintf("field %s produced %d distinct values", field, fc.DistinctValues))
		}
	}

	decision.RequiresManualReview = len(decision.Reasons) > 0
	return decision
}
