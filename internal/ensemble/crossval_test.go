package ensemble

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motscan/internal/domain"
	"motscan/internal/port"
)

// stubRegistry is a scriptable port.VehicleRegistry.
type stubRegistry struct {
	record *port.RegistryRecord
	err    error
	calls  int
}

func (s *stubRegistry) Lookup(_ context.Context, _ string) (*port.RegistryRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func consensusWith(fields map[string]string) map[string]FieldConsensus {
	out := make(map[string]FieldConsensus, len(fields))
	for field, value := range fields {
		out[field] = FieldConsensus{
			Field:           field,
			Value:           value,
			NormalizedValue: NormalizerFor(field)(value),
		}
	}
	return out
}

func TestValidate_RegistrationAbsent(t *testing.T) {
	registry := &stubRegistry{}
	outcome := NewCrossValidator(registry).Validate(context.Background(), map[string]FieldConsensus{})
	assert.True(t, outcome.Unavailable)
	assert.Zero(t, registry.calls)
}

func TestValidate_InvalidFormatNeverReachesRegistry(t *testing.T) {
	registry := &stubRegistry{}
	consensus := consensusWith(map[string]string{domain.FieldRegistration: "NOT A PLATE"})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	assert.True(t, outcome.Unavailable)
	assert.Zero(t, registry.calls)
}

func TestValidate_NotFoundIsMismatch(t *testing.T) {
	registry := &stubRegistry{err: domain.ErrNotFound}
	consensus := consensusWith(map[string]string{domain.FieldRegistration: "AB12 CDE"})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	assert.False(t, outcome.Unavailable)
	assert.False(t, outcome.IsConsistent)
	assert.Nil(t, outcome.RegistryRecord)
}

func TestValidate_TransportFailureIsUnavailableNotMismatch(t *testing.T) {
	registry := &stubRegistry{err: errors.New("dial tcp: connection refused")}
	consensus := consensusWith(map[string]string{domain.FieldRegistration: "AB12 CDE"})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	assert.True(t, outcome.Unavailable)
	assert.Empty(t, outcome.Mismatches)
}

func TestValidate_MatchingRecordConsistent(t *testing.T) {
	registry := &stubRegistry{record: &port.RegistryRecord{
		Registration: "AB12CDE",
		Make:         "FORD",
		Model:        "FOCUS",
		MOTExpiry:    "2026-09-15",
	}}
	consensus := consensusWith(map[string]string{
		domain.FieldRegistration: "AB12 CDE",
		domain.FieldMake:         "Ford",
		domain.FieldModel:        "Focus",
		domain.FieldMOTExpiry:    "15/09/2026",
	})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	require.False(t, outcome.Unavailable)
	assert.True(t, outcome.IsConsistent)
	assert.Empty(t, outcome.Mismatches)
	assert.Equal(t, 1, registry.calls)
}

func TestValidate_MakeMismatch(t *testing.T) {
	registry := &stubRegistry{record: &port.RegistryRecord{
		Registration: "AB12CDE",
		Make:         "VAUXHALL",
	}}
	consensus := consensusWith(map[string]string{
		domain.FieldRegistration: "AB12CDE",
		domain.FieldMake:         "Ford",
	})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	assert.False(t, outcome.IsConsistent)
	assert.Contains(t, outcome.Mismatches, "make")
}

func TestValidate_PartialRegistryRecordCorroboratesNothing(t *testing.T) {
	registry := &stubRegistry{record: &port.RegistryRecord{Registration: "AB12CDE"}}
	consensus := consensusWith(map[string]string{
		domain.FieldRegistration: "AB12CDE",
		domain.FieldMake:         "Ford",
	})

	outcome := NewCrossValidator(registry).Validate(context.Background(), consensus)
	assert.True(t, outcome.IsConsistent)
}

func TestFieldsDisagree_SubstringCountsAsAgreement(t *testing.T) {
	assert.False(t, fieldsDisagree("VOLKSWAGEN GOLF", "GOLF"))
	assert.False(t, fieldsDisagree("GOLF", "VOLKSWAGEN GOLF"))
	assert.True(t, fieldsDisagree("FORD", "VAUXHALL"))
}
