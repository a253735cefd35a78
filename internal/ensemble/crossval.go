package ensemble

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"motscan/internal/domain"
	"motscan/internal/port"
	"motscan/internal/validation"
)

// ValidationOutcome is the result of cross-checking the consensus
// registration against the vehicle registry. Unavailable means the
// registry could not be consulted at all (bad format, no registration,
// transport failure) and must never be read as a mismatch.
type ValidationOutcome struct {
	IsConsistent   bool                 `json:"is_consistent"`
	Unavailable    bool                 `json:"unavailable"`
	RegistryRecord *port.RegistryRecord `json:"registry_record,omitempty"`
	Mismatches     []string             `json:"mismatches,omitempty"`
}

// CrossValidator checks consensus output against the national vehicle
// registry.
type CrossValidator struct {
	registry port.VehicleRegistry
}

// NewCrossValidator creates a CrossValidator.
func NewCrossValidator(registry port.VehicleRegistry) *CrossValidator {
	return &CrossValidator{registry: registry}
}

// Validate looks up the consensus registration and corroborates make,
// model and MOT expiry where the consensus extracted them. Malformed or
// missing registrations never reach the registry.
func (cv *CrossValidator) Validate(ctx context.Context, perField map[string]FieldConsensus) ValidationOutcome {
	reg, ok := perField[domain.FieldRegistration]
	if !ok {
		return ValidationOutcome{Unavailable: true}
	}
	check := validation.ValidateRegistration(reg.NormalizedValue, time.Now().UTC())
	if !check.IsValid {
		log.Printf("ensemble.CrossValidator: registration %q failed format check, skipping lookup", reg.NormalizedValue)
		return ValidationOutcome{Unavailable: true}
	}

	record, err := cv.registry.Lookup(ctx, check.Normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ValidationOutcome{
				IsConsistent: false,
				Mismatches:   []string{"registration not found in registry"},
			}
		}
		log.Printf("ensemble.CrossValidator: registry lookup failed: %v", err)
		return ValidationOutcome{Unavailable: true}
	}

	outcome := ValidationOutcome{IsConsistent: true, RegistryRecord: record}
	if c, ok := perField[domain.FieldMake]; ok && fieldsDisagree(c.NormalizedValue, record.Make) {
		outcome.Mismatches = append(outcome.Mismatches, "make")
	}
	if c, ok := perField[domain.FieldModel]; ok && fieldsDisagree(c.NormalizedValue, record.Model) {
		outcome.Mismatches = append(outcome.Mismatches, "model")
	}
	if c, ok := perField[domain.FieldMOTExpiry]; ok && record.MOTExpiry != "" {
		if c.NormalizedValue != validation.NormalizeDate(record.MOTExpiry) {
			outcome.Mismatches = append(outcome.Mismatches, "mot_expiry")
		}
	}
	outcome.IsConsistent = len(outcome.Mismatches) == 0
	return outcome
}

// fieldsDisagree reports a material disagreement between a consensus
// value and a registry value. Empty registry fields corroborate nothing
// and one value containing the other counts as agreement ("VOLKSWAGEN
// GOLF" vs "GOLF").
func fieldsDisagree(consensus, registry string) bool {
	r := strings.ToUpper(strings.TrimSpace(registry))
	if r == "" || consensus == "" {
		return false
	}
	if consensus == r {
		return false
	}
	return !strings.Contains(consensus, r) && !strings.Contains(r, consensus)
}
