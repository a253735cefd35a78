package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"motscan/internal/domain"
	"motscan/internal/ensemble"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Job ID",
	"Status",
	"Review Status",
	"Registration",
	"MOT Expiry",
	"Make",
	"Model",
	"Customer Name",
	"Customer Phone",
	"Customer Email",
	"Overall Confidence",
	"Requires Review",
	"Review Reasons",
	"Registry Consistent",
	"Models Used",
	"Software Detected",
	"Error",
	"Created At",
	"Completed At",
}

// Writer wraps csv.Writer for exporting extraction jobs as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteJobs converts a batch of extraction jobs to CSV rows and writes them.
func (w *Writer) WriteJobs(jobs []*domain.ExtractionJob) error {
	for _, job := range jobs {
		if err := w.csv.Write(jobToRow(job)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// jobToRow converts a single job to a string slice matching columns.
// If the job never completed or its stored result is invalid, metadata
// columns are filled and extraction columns are left empty.
func jobToRow(job *domain.ExtractionJob) []string {
	row := make([]string, len(columns))

	row[0] = job.ID.String()
	row[1] = string(job.Status)
	row[2] = string(job.ReviewStatus)
	row[11] = formatBool(job.RequiresManualReview)
	if job.ErrorMessage != nil {
		row[16] = *job.ErrorMessage
	}
	row[17] = job.CreatedAt.Format(time.RFC3339)
	row[18] = formatTime(job.CompletedAt)

	if job.Status != domain.JobStatusCompleted || len(job.ResultData) == 0 {
		return row
	}

	var result ensemble.Result
	if err := json.Unmarshal(job.ResultData, &result); err != nil {
		return row
	}

	row[3] = fieldValue(result, domain.FieldRegistration)
	row[4] = fieldValue(result, domain.FieldMOTExpiry)
	row[5] = fieldValue(result, domain.FieldMake)
	row[6] = fieldValue(result, domain.FieldModel)
	row[7] = fieldValue(result, domain.FieldCustomerName)
	row[8] = fieldValue(result, domain.FieldCustomerPhone)
	row[9] = fieldValue(result, domain.FieldCustomerEmail)
	row[10] = strconv.FormatFloat(result.OverallConfidence, 'f', 2, 64)
	row[12] = strings.Join(result.ReviewReasons, "; ")
	if result.Validation.Unavailable {
		row[13] = "unknown"
	} else {
		row[13] = formatBool(result.Validation.IsConsistent)
	}
	row[14] = strings.Join(result.ModelsUsed, ", ")
	row[15] = result.SoftwareDetected

	return row
}

func fieldValue(result ensemble.Result, field string) string {
	if fc, ok := result.PerField[field]; ok {
		return fc.Value
	}
	return ""
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), ext)
}
