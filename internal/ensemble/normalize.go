package ensemble

import (
	"strings"

	"motscan/internal/domain"
	"motscan/internal/validation"
)

// Normalizer maps a raw candidate value to its canonical form for
// consensus grouping. Two candidates agree iff their normalized forms
// are equal.
type Normalizer func(string) string

// NormalizerFor returns the field-specific normalizer. Registrations are
// uppercased with whitespace stripped, dates are canonicalized to
// DD/MM/YYYY, everything else is uppercased with whitespace collapsed.
func NormalizerFor(field string) Normalizer {
	switch field {
	case domain.FieldRegistration:
		return validation.NormalizeRegistration
	case domain.FieldMOTExpiry:
		return validation.NormalizeDate
	default:
		return normalizeDefault
	}
}

func normalizeDefault(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}
