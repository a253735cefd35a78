package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"15/09/2026", "15/09/2026"},
		{"15-09-2026", "15/09/2026"},
		{"15.09.2026", "15/09/2026"},
		{"2026-09-15", "15/09/2026"},
		{"15 Sep 2026", "15/09/2026"},
		{"15 September 2026", "15/09/2026"},
		{"MOT: 15/09/2026", "15/09/2026"},
		{"not a date", "NOT A DATE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDate(tt.input), "input %q", tt.input)
	}
}

func TestValidateDate_Valid(t *testing.T) {
	result := ValidateDate("15/09/2026", testNow)
	require.True(t, result.IsValid)
	assert.Equal(t, "15/09/2026", result.Normalized)
	assert.Equal(t, 1.0, result.Confidence)
	assert.False(t, result.IsExpired)
	assert.Greater(t, result.DaysUntilExpiry, 0)
}

func TestValidateDate_Expired(t *testing.T) {
	result := ValidateDate("01/01/2026", testNow)
	require.True(t, result.IsValid)
	assert.True(t, result.IsExpired)
	assert.Zero(t, result.DaysUntilExpiry)
}

func TestValidateDate_EmptyAndNotFound(t *testing.T) {
	for _, input := range []string{"", "NOT_FOUND"} {
		result := ValidateDate(input, testNow)
		assert.False(t, result.IsValid)
		assert.NotEmpty(t, result.Errors)
	}
}

func TestValidateDate_Unparseable(t *testing.T) {
	result := ValidateDate("soon", testNow)
	assert.False(t, result.IsValid)
	assert.Nil(t, result.Parsed)
}

func TestValidateDate_TooFarOut(t *testing.T) {
	result := ValidateDate("15/09/2030", testNow)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)

	result = ValidateDate("15/09/2020", testNow)
	assert.False(t, result.IsValid)
}

func TestValidateDate_ImpossibleDateRejected(t *testing.T) {
	result := ValidateDate("32/13/2026", testNow)
	assert.False(t, result.IsValid)
}

func TestValidateDate_StripsLabels(t *testing.T) {
	result := ValidateDate("Expires: 15/09/2026", testNow)
	require.True(t, result.IsValid)
	assert.Equal(t, "15/09/2026", result.Normalized)
}
