package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"motscan/internal/domain"
	"motscan/internal/ensemble"
)

func completedJob(t *testing.T) *domain.ExtractionJob {
	t.Helper()
	result := ensemble.Result{
		PerField: map[string]ensemble.FieldConsensus{
			domain.FieldRegistration: {Field: domain.FieldRegistration, Value: "AB12 CDE", NormalizedValue: "AB12CDE", AggregatedConfidence: 0.95},
			domain.FieldMOTExpiry:    {Field: domain.FieldMOTExpiry, Value: "14/03/2026", NormalizedValue: "14/03/2026", AggregatedConfidence: 0.9},
			domain.FieldMake:         {Field: domain.FieldMake, Value: "Ford", NormalizedValue: "FORD", AggregatedConfidence: 0.92},
		},
		Validation:        ensemble.ValidationOutcome{IsConsistent: true},
		OverallConfidence: 0.93,
		ModelsUsed:        []string{"claude-sonnet", "gpt-5"},
		SoftwareDetected:  "Garage Hive",
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)

	conf := 0.93
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ExtractionJob{
		ID:                uuid.New(),
		ScreenshotID:      uuid.New(),
		Status:            domain.JobStatusCompleted,
		ResultData:        data,
		OverallConfidence: &conf,
		ReviewStatus:      domain.ReviewNotRequired,
		CreatedAt:         time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
		CompletedAt:       &completedAt,
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	r := csv.NewReader(&buf)
	row, err := r.Read()
	require.NoError(t, err)

	assert.Len(t, row, 19)
	assert.Equal(t, "Job ID", row[0])
	assert.Equal(t, "Registration", row[3])
	assert.Equal(t, "Completed At", row[18])
}

func TestWriteJobs_Completed(t *testing.T) {
	job := completedJob(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteJobs([]*domain.ExtractionJob{job}))
	w.Flush()
	require.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, job.ID.String(), row[0])
	assert.Equal(t, "completed", row[1])
	assert.Equal(t, "AB12 CDE", row[3])
	assert.Equal(t, "14/03/2026", row[4])
	assert.Equal(t, "Ford", row[5])
	assert.Equal(t, "0.93", row[10])
	assert.Equal(t, "Yes", row[13])
	assert.Equal(t, "claude-sonnet, gpt-5", row[14])
	assert.Equal(t, "Garage Hive", row[15])
}

func TestWriteJobs_FailedLeavesExtractionColumnsEmpty(t *testing.T) {
	msg := "all models unavailable"
	job := &domain.ExtractionJob{
		ID:           uuid.New(),
		Status:       domain.JobStatusFailed,
		ReviewStatus: domain.ReviewNotRequired,
		ErrorMessage: &msg,
		CreatedAt:    time.Now().UTC(),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteJobs([]*domain.ExtractionJob{job}))
	w.Flush()

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	row := rows[0]
	assert.Equal(t, "failed", row[1])
	assert.Empty(t, row[3])
	assert.Equal(t, "all models unavailable", row[16])
}

func TestWriteWorkbook(t *testing.T) {
	job := completedJob(t)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, []*domain.ExtractionJob{job}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Job ID", rows[0][0])
	assert.Equal(t, "AB12 CDE", rows[1][3])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"March MOT batch", "March_MOT_batch"},
		{"weird///name!!", "weird_name"},
		{"__already__clean__", "already_clean"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in))
	}
}

func TestBuildFilename(t *testing.T) {
	name := BuildFilename("review queue", "csv")
	assert.Contains(t, name, "review_queue_")
	assert.Contains(t, name, ".csv")
}
