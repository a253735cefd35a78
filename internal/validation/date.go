package validation

import (
	"regexp"
	"strings"
	"time"
)

// CanonicalDateLayout is the layout every recognized date is normalized to.
const CanonicalDateLayout = "02/01/2006"

var datePatterns = []struct {
	pattern    *regexp.Regexp
	layout     string
	confidence float64
}{
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "02/01/2006", 1.0},
	{regexp.MustCompile(`\d{2}-\d{2}-\d{4}`), "02-01-2006", 0.9},
	{regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`), "02.01.2006", 0.9},
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02", 0.7},
	{regexp.MustCompile(`\d{1,2} (?i:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{4}`), "2 Jan 2006", 0.8},
	{regexp.MustCompile(`\d{1,2} (?i:January|February|March|April|May|June|July|August|September|October|November|December) \d{4}`), "2 January 2006", 0.8},
}

var (
	datePrefixRe = regexp.MustCompile(`(?i)^(MOT|Expires?|Due|Until):\s*`)
	dateSuffixRe = regexp.MustCompile(`(?i)\s*(MOT|Expiry|Due)$`)
)

// DateResult reports the outcome of validating one MOT expiry date.
type DateResult struct {
	IsValid         bool       `json:"is_valid"`
	Parsed          *time.Time `json:"-"`
	Normalized      string     `json:"normalized"`
	Confidence      float64    `json:"confidence"`
	Errors          []string   `json:"errors,omitempty"`
	IsExpired       bool       `json:"is_expired"`
	DaysUntilExpiry int        `json:"days_until_expiry,omitempty"`
}

// NormalizeDate parses a date in any recognized format and returns it in
// canonical DD/MM/YYYY form. Unparseable input is returned cleaned but
// otherwise unchanged so distinct garbage values stay distinct.
func NormalizeDate(raw string) string {
	cleaned := cleanDateString(raw)
	if t, _, ok := parseDate(cleaned); ok {
		return t.Format(CanonicalDateLayout)
	}
	return strings.ToUpper(cleaned)
}

// ValidateDate parses and sanity-checks an MOT expiry date.
func ValidateDate(raw string, now time.Time) DateResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "NOT_FOUND" {
		return DateResult{Errors: []string{"date is empty or not found"}}
	}

	cleaned := cleanDateString(trimmed)
	parsed, confidence, ok := parseDate(cleaned)
	if !ok {
		return DateResult{
			Normalized: cleaned,
			Errors:     []string{"could not parse date format"},
		}
	}

	result := DateResult{
		Parsed:     &parsed,
		Normalized: parsed.Format(CanonicalDateLayout),
		Confidence: confidence,
	}

	// MOT expiry dates more than two years either side of today are almost
	// certainly misreads.
	if parsed.Before(now.AddDate(-2, 0, 0)) {
		result.Errors = append(result.Errors, "date is more than 2 years in the past")
		result.Confidence -= 0.3
	}
	if parsed.After(now.AddDate(2, 0, 0)) {
		result.Errors = append(result.Errors, "date is more than 2 years in the future")
		result.Confidence -= 0.4
	}
	if parsed.Year() < 1960 {
		result.Errors = append(result.Errors, "date is before MOT testing began")
		result.Confidence -= 0.5
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}

	days := int(parsed.Sub(now).Hours() / 24)
	if days < 0 {
		result.IsExpired = true
	} else {
		result.DaysUntilExpiry = days
	}

	result.IsValid = len(result.Errors) == 0 && result.Confidence >= 0.5
	return result
}

func cleanDateString(raw string) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	cleaned = datePrefixRe.ReplaceAllString(cleaned, "")
	cleaned = dateSuffixRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func parseDate(cleaned string) (time.Time, float64, bool) {
	for _, p := range datePatterns {
		match := p.pattern.FindString(cleaned)
		if match == "" {
			continue
		}
		t, err := time.Parse(p.layout, normalizeMonthCase(match, p.layout))
		if err != nil {
			continue
		}
		return t, p.confidence, true
	}
	return time.Time{}, 0, false
}

// normalizeMonthCase title-cases month names so time.Parse accepts inputs
// like "12 jan 2026".
func normalizeMonthCase(match, layout string) string {
	if !strings.Contains(layout, "Jan") {
		return match
	}
	parts := strings.Fields(match)
	if len(parts) == 3 && len(parts[1]) > 0 {
		parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	}
	return strings.Join(parts, " ")
}
