package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motscan/internal/domain"
)

func TestDecodeModelOutput(t *testing.T) {
	text := `{
		"data": {
			"registration": "AB12 CDE",
			"mot_expiry": "15/09/2026",
			"make": "Ford",
			"model": "NOT_FOUND",
			"customer_name": "",
			"customer_phone": "NOT_FOUND",
			"customer_email": "NOT_FOUND"
		},
		"confidence_scores": {
			"registration": 0.95,
			"mot_expiry": 0.9,
			"make": 0.8
		},
		"software_detected": "Techman"
	}`

	resp, err := DecodeModelOutput(text)
	require.NoError(t, err)

	assert.Len(t, resp.Fields, 3)
	assert.Equal(t, "AB12 CDE", resp.Fields[domain.FieldRegistration].Value)
	assert.Equal(t, 0.95, resp.Fields[domain.FieldRegistration].Confidence)
	assert.NotContains(t, resp.Fields, domain.FieldModel)
	assert.NotContains(t, resp.Fields, domain.FieldCustomerName)
	assert.Equal(t, "Techman", resp.SoftwareDetected)
}

func TestDecodeModelOutput_StripsCodeFences(t *testing.T) {
	text := "```json\n{\"data\":{\"registration\":\"AB12CDE\"},\"confidence_scores\":{\"registration\":0.9},\"software_detected\":\"NOT_FOUND\"}\n```"

	resp, err := DecodeModelOutput(text)
	require.NoError(t, err)
	assert.Equal(t, "AB12CDE", resp.Fields[domain.FieldRegistration].Value)
	assert.Empty(t, resp.SoftwareDetected)
}

func TestDecodeModelOutput_ClampsConfidence(t *testing.T) {
	text := `{"data":{"registration":"AB12CDE","make":"Ford"},"confidence_scores":{"registration":1.7,"make":-0.2}}`

	resp, err := DecodeModelOutput(text)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Fields[domain.FieldRegistration].Confidence)
	assert.Equal(t, 0.0, resp.Fields[domain.FieldMake].Confidence)
}

func TestDecodeModelOutput_InvalidJSON(t *testing.T) {
	_, err := DecodeModelOutput("the registration is AB12CDE")
	assert.Error(t, err)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 30, ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, ParseRetryAfterHeader(""))
	assert.Equal(t, 0, ParseRetryAfterHeader("Wed, 21 Oct 2026 07:28:00 GMT"))
}
