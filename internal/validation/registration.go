// Package validation implements UK vehicle registration and MOT date
// validation used by the consensus and cross-validation stages.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RegistrationFormat identifies which historical UK plate format matched.
type RegistrationFormat string

const (
	FormatCurrent         RegistrationFormat = "current"          // 2001-present: AB12 CDE
	FormatPrefix          RegistrationFormat = "prefix"           // 1983-2001: A123 BCD
	FormatSuffix          RegistrationFormat = "suffix"           // 1963-1983: ABC 123D
	FormatDateless        RegistrationFormat = "dateless"         // pre-1963: 1234 AB
	FormatNorthernIreland RegistrationFormat = "northern_ireland" // ABC 1234
	FormatUnknown         RegistrationFormat = "unknown"
)

var registrationPatterns = []struct {
	format  RegistrationFormat
	pattern *regexp.Regexp
}{
	{FormatCurrent, regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{3}$`)},
	{FormatPrefix, regexp.MustCompile(`^[A-Z][0-9]{1,3}[A-Z]{3}$`)},
	{FormatSuffix, regexp.MustCompile(`^[A-Z]{3}[0-9]{1,3}[A-Z]$`)},
	{FormatDateless, regexp.MustCompile(`^[0-9]{1,4}[A-Z]{1,3}$`)},
	{FormatNorthernIreland, regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,4}$`)},
}

// DVLA memory-tag area letters issued under the current format.
var dvlaAreaLetters = map[byte]bool{
	'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true,
	'G': true, 'H': true, 'K': true, 'L': true, 'M': true, 'N': true,
	'O': true, 'P': true, 'R': true, 'S': true, 'V': true, 'W': true,
	'Y': true,
}

// Character pairs that commonly get confused by OCR.
var suspiciousSequences = []*regexp.Regexp{
	regexp.MustCompile(`[IL1|][IL1|]`),
	regexp.MustCompile(`[O0][O0]`),
}

// RegistrationResult reports the outcome of validating one registration.
type RegistrationResult struct {
	IsValid       bool               `json:"is_valid"`
	Format        RegistrationFormat `json:"format"`
	Normalized    string             `json:"normalized"`
	Confidence    float64            `json:"confidence"`
	Errors        []string           `json:"errors,omitempty"`
	AgeIdentifier string             `json:"age_identifier,omitempty"`
	EstimatedYear int                `json:"estimated_year,omitempty"`
}

// NormalizeRegistration strips all whitespace and uppercases. This is the
// canonical form used both for consensus grouping and registry lookups.
func NormalizeRegistration(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// ValidateRegistration checks a registration against the known UK plate
// formats. Only a valid result should be sent to the vehicle registry.
func ValidateRegistration(raw string, now time.Time) RegistrationResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "NOT_FOUND" {
		return RegistrationResult{
			Format: FormatUnknown,
			Errors: []string{"registration is empty or not found"},
		}
	}

	normalized := NormalizeRegistration(trimmed)
	result := RegistrationResult{
		Format:     FormatUnknown,
		Normalized: normalized,
		Confidence: 1.0,
	}

	for _, p := range registrationPatterns {
		if p.pattern.MatchString(normalized) {
			result.Format = p.format
			break
		}
	}
	if result.Format == FormatUnknown {
		result.Confidence = 0
		result.Errors = append(result.Errors, "does not match any known UK registration format")
		return result
	}

	if result.Format == FormatCurrent {
		if !dvlaAreaLetters[normalized[0]] {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid area code: %c", normalized[0]))
			result.Confidence -= 0.2
		}
		ageCode := normalized[2:4]
		if year, ok := ageIdentifierYear(ageCode); ok {
			result.AgeIdentifier = ageCode
			result.EstimatedYear = year
			if year > now.Year()+1 {
				result.Errors = append(result.Errors, fmt.Sprintf("registration appears to be from future year: %d", year))
				result.Confidence -= 0.4
			}
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid age identifier: %s", ageCode))
			result.Confidence -= 0.3
		}
	}

	for _, seq := range suspiciousSequences {
		if seq.MatchString(normalized) {
			result.Confidence -= 0.1
		}
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}

	result.IsValid = len(result.Errors) == 0 && result.Confidence >= 0.5
	return result
}

// ageIdentifierYear decodes a current-format age identifier. Plates issued
// March-August carry the two-digit year (e.g. 24), September-February the
// year plus fifty (e.g. 74).
func ageIdentifierYear(code string) (int, bool) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	switch {
	case n >= 1 && n <= 50:
		return 2000 + n, true
	case n >= 51 && n <= 99:
		return 2000 + n - 50, true
	default:
		return 0, false
	}
}
