package ensemble

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/port"
)

// Result is the terminal artifact of one extraction run. Created once,
// never mutated after Run returns.
type Result struct {
	PerField             map[string]FieldConsensus `json:"per_field"`
	Validation           ValidationOutcome         `json:"validation"`
	OverallConfidence    float64                   `json:"overall_confidence"`
	RequiresManualReview bool                      `json:"requires_manual_review"`
	ReviewReasons        []string                  `json:"review_reasons,omitempty"`
	ModelsUsed           []string                  `json:"models_used"`
	Failures             []ModelFailure            `json:"failures,omitempty"`
	SoftwareDetected     string                    `json:"software_detected,omitempty"`
	ErrorKind            domain.ErrorKind          `json:"error_kind,omitempty"`
}

// Pipeline wires invoker, consensus, cross-validation and the review
// decision into one extraction flow. A process-wide weighted semaphore
// bounds how many extractions run concurrently; requests beyond capacity
// queue on Acquire rather than being rejected.
type Pipeline struct {
	invoker          *Invoker
	consensus        *ConsensusEngine
	crossval         *CrossValidator
	decision         *DecisionEngine
	sem              *semaphore.Weighted
	requestTimeout   time.Duration
	mismatchDiscount float64
}

// NewPipeline creates a Pipeline from configuration.
func NewPipeline(clients []port.VisionModel, registry port.VehicleRegistry, cfg config.EnsembleConfig) *Pipeline {
	return &Pipeline{
		invoker: NewInvoker(clients,
			time.Duration(cfg.OverallTimeoutSecs)*time.Second,
			cfg.MinRequiredSuccesses),
		consensus: NewConsensusEngine(ConsensusConfig{
			MinModelAgreement:   cfg.MinModelAgreement,
			LowAgreementCeiling: cfg.LowAgreementCeiling,
			ModelPriority:       cfg.ModelPriority,
		}),
		crossval: NewCrossValidator(registry),
		decision: NewDecisionEngine(DecisionConfig{
			RequiredFields:     cfg.RequiredFields,
			MinConfidenceScore: cfg.MinConfidenceScore,
			MinAgreementLevel:  cfg.MinAgreementLevel,
			MaxDistinctValues:  cfg.MaxDistinctValues,
		}),
		sem:              semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		requestTimeout:   time.Duration(cfg.RequestTimeoutSecs) * time.Second,
		mismatchDiscount: cfg.MismatchDiscount,
	}
}

// Run executes the full extraction flow for one screenshot. Only an
// insufficient-models outcome (or cancellation while queued) is returned
// as an error; every other degradation surfaces inside the Result.
func (p *Pipeline) Run(ctx context.Context, input port.ExtractInput) (*Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer p.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	fanout, err := p.invoker.Invoke(ctx, input)
	if err != nil {
		return nil, err
	}

	perField := p.consensus.Reconcile(fanout.Responses)
	validation := p.crossval.Validate(ctx, perField)

	// A registry mismatch discounts the confidence of the fields it
	// contradicts before the review gate sees them.
	if !validation.Unavailable && !validation.IsConsistent {
		perField = p.applyMismatchDiscount(perField, validation.Mismatches)
	}

	decision := p.decision.Decide(perField, validation)

	result := &Result{
		PerField:             perField,
		Validation:           validation,
		OverallConfidence:    decision.OverallConfidence,
		RequiresManualReview: decision.RequiresManualReview,
		ReviewReasons:        decision.Reasons,
		ModelsUsed:           fanout.ModelsUsed(),
		Failures:             fanout.Failures,
		SoftwareDetected:     p.consensus.SoftwareDetected(fanout.Responses),
	}
	result.ErrorKind = resultErrorKind(result)

	log.Printf("ensemble.Pipeline: extraction complete, models=%d confidence=%.2f review=%t",
		len(result.ModelsUsed), result.OverallConfidence, result.RequiresManualReview)
	return result, nil
}

// applyMismatchDiscount returns a copy of perField with the mismatched
// fields' confidence multiplied by the configured discount. The
// registration itself is always discounted on any mismatch since the
// registry record was found under it.
func (p *Pipeline) applyMismatchDiscount(perField map[string]FieldConsensus, mismatches []string) map[string]FieldConsensus {
	discounted := make(map[string]FieldConsensus, len(perField))
	affected := map[string]bool{domain.FieldRegistration: true}
	for _, m := range mismatches {
		affected[m] = true
	}
	for field, fc := range perField {
		if affected[field] {
			fc.AggregatedConfidence *= p.mismatchDiscount
		}
		discounted[field] = fc
	}
	return discounted
}

func resultErrorKind(r *Result) domain.ErrorKind {
	if len(r.PerField) == 0 {
		return domain.ErrorKindAmbiguousConsensus
	}
	if r.Validation.Unavailable {
		return domain.ErrorKindValidationUnavailable
	}
	return domain.ErrorKindNone
}
