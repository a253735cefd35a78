package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/ensemble"
	"motscan/internal/port"
	"motscan/internal/service"
	"motscan/mocks"
)

type extractionFixture struct {
	jobRepo        *mocks.MockExtractionJobRepo
	screenshotRepo *mocks.MockScreenshotRepo
	storage        *mocks.MockObjectStorage
	pipeline       *mocks.MockPipeline
	registry       *mocks.MockVehicleRegistry
	notifier       *mocks.MockReviewNotifier
	svc            service.ExtractionService
}

func newExtractionFixture() *extractionFixture {
	f := &extractionFixture{
		jobRepo:        new(mocks.MockExtractionJobRepo),
		screenshotRepo: new(mocks.MockScreenshotRepo),
		storage:        new(mocks.MockObjectStorage),
		pipeline:       new(mocks.MockPipeline),
		registry:       new(mocks.MockVehicleRegistry),
		notifier:       new(mocks.MockReviewNotifier),
	}
	cfg := config.EnsembleConfig{
		MinRequiredSuccesses: 2,
		MinModelAgreement:    2,
		MinConfidenceScore:   0.85,
		RequiredFields:       []string{domain.FieldRegistration, domain.FieldMOTExpiry},
	}
	f.svc = service.NewExtractionService(
		f.jobRepo, f.screenshotRepo, f.storage, f.pipeline, f.registry, f.notifier, nil, cfg)
	return f
}

func queuedJob(screenshotID uuid.UUID) *domain.ExtractionJob {
	return &domain.ExtractionJob{
		ID:           uuid.New(),
		ScreenshotID: screenshotID,
		RequestedBy:  uuid.New(),
		Status:       domain.JobStatusProcessing,
		ReviewStatus: domain.ReviewNotRequired,
	}
}

func testScreenshot() *domain.Screenshot {
	return &domain.Screenshot{
		ID:          uuid.New(),
		UploadedBy:  uuid.New(),
		FileName:    "booking.png",
		FileType:    domain.FileTypePNG,
		ContentType: "image/png",
		SizeBytes:   1024,
		StorageKey:  "screenshots/abc.png",
	}
}

func TestCreateJob(t *testing.T) {
	t.Run("queues a job for an existing screenshot", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ExtractionJob")).Return(nil)

		job, err := f.svc.CreateJob(context.Background(), screenshot.ID, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Equal(t, screenshot.ID, job.ScreenshotID)
		f.jobRepo.AssertExpectations(t)
	})

	t.Run("fails when the screenshot does not exist", func(t *testing.T) {
		f := newExtractionFixture()
		missing := uuid.New()
		f.screenshotRepo.On("GetByID", mock.Anything, missing).Return(nil, domain.ErrNotFound)

		_, err := f.svc.CreateJob(context.Background(), missing, uuid.New())

		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestExtractSync(t *testing.T) {
	t.Run("runs the pipeline inline and returns the finished job", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ExtractionJob")).Return(nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.Anything).Return(&ensemble.Result{
			PerField: map[string]ensemble.FieldConsensus{
				domain.FieldRegistration: {Field: domain.FieldRegistration, Value: "AB12 CDE", NormalizedValue: "AB12CDE", AggregatedConfidence: 0.95},
			},
			OverallConfidence: 0.95,
		}, nil)
		f.jobRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.ExtractionJob")).Return(nil)

		job, err := f.svc.ExtractSync(context.Background(), screenshot.ID, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.NotNil(t, job.ResultData)
	})

	t.Run("fails without retrying", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ExtractionJob")).Return(nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.Anything).Return(nil, domain.ErrInsufficientModels)
		f.jobRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.ExtractionJob")).Return(nil)

		job, err := f.svc.ExtractSync(context.Background(), screenshot.ID, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Equal(t, 1, job.Attempts)
	})
}

func TestProcessJob(t *testing.T) {
	t.Run("persists a clean result without review", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		job := queuedJob(screenshot.ID)

		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.AnythingOfType("port.ExtractInput")).Return(&ensemble.Result{
			PerField: map[string]ensemble.FieldConsensus{
				domain.FieldRegistration: {Field: domain.FieldRegistration, Value: "AB12 CDE", NormalizedValue: "AB12CDE", AggregatedConfidence: 0.95, AgreementLevel: 1.0},
			},
			OverallConfidence: 0.95,
			ModelsUsed:        []string{"claude", "gpt"},
		}, nil)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		f.svc.ProcessJob(context.Background(), job, 3)

		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.Equal(t, 1, job.Attempts)
		assert.False(t, job.RequiresManualReview)
		assert.Equal(t, domain.ReviewNotRequired, job.ReviewStatus)
		require.NotNil(t, job.OverallConfidence)
		assert.InDelta(t, 0.95, *job.OverallConfidence, 1e-9)
		assert.NotNil(t, job.CompletedAt)

		var stored ensemble.Result
		require.NoError(t, json.Unmarshal(job.ResultData, &stored))
		assert.Equal(t, "AB12CDE", stored.PerField[domain.FieldRegistration].NormalizedValue)

		f.notifier.AssertNotCalled(t, "SendReviewRequested", mock.Anything, mock.Anything)
	})

	t.Run("flags review and notifies", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		job := queuedJob(screenshot.ID)

		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.Anything).Return(&ensemble.Result{
			PerField: map[string]ensemble.FieldConsensus{
				domain.FieldRegistration: {Field: domain.FieldRegistration, Value: "AB12 CDE", NormalizedValue: "AB12CDE", AggregatedConfidence: 0.6},
			},
			OverallConfidence:    0.6,
			RequiresManualReview: true,
			ReviewReasons:        []string{"overall confidence 0.60 below threshold 0.85"},
		}, nil)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)
		f.notifier.On("SendReviewRequested", mock.Anything, mock.MatchedBy(func(n port.ReviewNotification) bool {
			return n.JobID == job.ID && n.Registration == "AB12CDE"
		})).Return(nil)

		f.svc.ProcessJob(context.Background(), job, 3)

		assert.True(t, job.RequiresManualReview)
		assert.Equal(t, domain.ReviewPending, job.ReviewStatus)
		f.notifier.AssertExpectations(t)
	})

	t.Run("requeues on insufficient models while attempts remain", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		job := queuedJob(screenshot.ID)

		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.Anything).
			Return(nil, domain.ErrInsufficientModels)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		f.svc.ProcessJob(context.Background(), job, 3)

		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Equal(t, domain.ErrorKindInsufficientModels, job.ErrorKind)
		require.NotNil(t, job.ErrorMessage)
	})

	t.Run("fails permanently when retries are exhausted", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		job := queuedJob(screenshot.ID)
		job.Attempts = 2

		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return([]byte("fake-png"), nil)
		f.pipeline.On("Run", mock.Anything, mock.Anything).
			Return(nil, domain.ErrInsufficientModels)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		f.svc.ProcessJob(context.Background(), job, 3)

		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Equal(t, 3, job.Attempts)
		assert.Equal(t, domain.ErrorKindInsufficientModels, job.ErrorKind)
	})

	t.Run("requeues when the screenshot download fails", func(t *testing.T) {
		f := newExtractionFixture()
		screenshot := testScreenshot()
		job := queuedJob(screenshot.ID)

		f.screenshotRepo.On("GetByID", mock.Anything, screenshot.ID).Return(screenshot, nil)
		f.storage.On("Download", mock.Anything, screenshot.StorageKey).Return(nil, errors.New("s3 down"))
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		f.svc.ProcessJob(context.Background(), job, 3)

		assert.Equal(t, domain.JobStatusQueued, job.Status)
		f.pipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})
}

func TestRetry(t *testing.T) {
	t.Run("requeues a failed job", func(t *testing.T) {
		f := newExtractionFixture()
		job := queuedJob(uuid.New())
		job.Status = domain.JobStatusFailed
		requeued := *job
		requeued.Status = domain.JobStatusQueued

		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil).Once()
		f.jobRepo.On("Requeue", mock.Anything, job.ID).Return(nil)
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(&requeued, nil)

		got, err := f.svc.Retry(context.Background(), job.ID)

		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, got.Status)
	})

	t.Run("refuses to retry a completed job", func(t *testing.T) {
		f := newExtractionFixture()
		job := queuedJob(uuid.New())
		job.Status = domain.JobStatusCompleted
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

		_, err := f.svc.Retry(context.Background(), job.ID)

		assert.Error(t, err)
		f.jobRepo.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything)
	})
}

func TestResolveReview(t *testing.T) {
	completedReviewJob := func() *domain.ExtractionJob {
		result := ensemble.Result{
			PerField: map[string]ensemble.FieldConsensus{
				domain.FieldRegistration: {Field: domain.FieldRegistration, Value: "AB12 CDE", NormalizedValue: "AB12CDE", AggregatedConfidence: 0.6},
			},
			OverallConfidence:    0.6,
			RequiresManualReview: true,
		}
		data, _ := json.Marshal(result)
		job := queuedJob(uuid.New())
		job.Status = domain.JobStatusCompleted
		job.RequiresManualReview = true
		job.ReviewStatus = domain.ReviewPending
		job.ResultData = data
		return job
	}

	t.Run("approves as-is", func(t *testing.T) {
		f := newExtractionFixture()
		job := completedReviewJob()
		reviewer := uuid.New()
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		got, err := f.svc.ResolveReview(context.Background(), job.ID, reviewer, domain.ReviewResolution{
			Approve: true,
			Notes:   "looks right",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ReviewApproved, got.ReviewStatus)
		require.NotNil(t, got.ReviewedBy)
		assert.Equal(t, reviewer, *got.ReviewedBy)
		assert.NotNil(t, got.ReviewedAt)
		require.NotNil(t, got.ReviewNotes)
		assert.Equal(t, "looks right", *got.ReviewNotes)
	})

	t.Run("applies corrections at full confidence", func(t *testing.T) {
		f := newExtractionFixture()
		job := completedReviewJob()
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)
		f.jobRepo.On("Update", mock.Anything, job).Return(nil)

		got, err := f.svc.ResolveReview(context.Background(), job.ID, uuid.New(), domain.ReviewResolution{
			Corrections: map[string]string{domain.FieldRegistration: "xy62 abc"},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ReviewCorrected, got.ReviewStatus)

		var stored ensemble.Result
		require.NoError(t, json.Unmarshal(got.ResultData, &stored))
		fc := stored.PerField[domain.FieldRegistration]
		assert.Equal(t, "xy62 abc", fc.Value)
		assert.Equal(t, "XY62ABC", fc.NormalizedValue)
		assert.Equal(t, 1.0, fc.AggregatedConfidence)
	})

	t.Run("rejecting without corrections is an error", func(t *testing.T) {
		f := newExtractionFixture()
		job := completedReviewJob()
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

		_, err := f.svc.ResolveReview(context.Background(), job.ID, uuid.New(), domain.ReviewResolution{})

		assert.ErrorIs(t, err, domain.ErrJobNotReviewable)
	})

	t.Run("refuses a job that is not pending review", func(t *testing.T) {
		f := newExtractionFixture()
		job := completedReviewJob()
		job.ReviewStatus = domain.ReviewApproved
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

		_, err := f.svc.ResolveReview(context.Background(), job.ID, uuid.New(), domain.ReviewResolution{Approve: true})

		assert.ErrorIs(t, err, domain.ErrJobNotReviewable)
	})

	t.Run("refuses a job that never completed", func(t *testing.T) {
		f := newExtractionFixture()
		job := completedReviewJob()
		job.Status = domain.JobStatusFailed
		f.jobRepo.On("GetByID", mock.Anything, job.ID).Return(job, nil)

		_, err := f.svc.ResolveReview(context.Background(), job.ID, uuid.New(), domain.ReviewResolution{Approve: true})

		assert.ErrorIs(t, err, domain.ErrJobNotCompleted)
	})
}

func TestCheckRegistration(t *testing.T) {
	t.Run("valid format is looked up", func(t *testing.T) {
		f := newExtractionFixture()
		f.registry.On("Lookup", mock.Anything, "AB12CDE").Return(&port.RegistryRecord{
			Registration: "AB12CDE",
			Make:         "FORD",
		}, nil)

		check, err := f.svc.CheckRegistration(context.Background(), "ab12 cde")

		require.NoError(t, err)
		assert.True(t, check.Validation.IsValid)
		assert.True(t, check.RegistryChecked)
		assert.True(t, check.FoundInRegistry)
		assert.Equal(t, "FORD", check.Record.Make)
	})

	t.Run("invalid format skips the registry", func(t *testing.T) {
		f := newExtractionFixture()

		check, err := f.svc.CheckRegistration(context.Background(), "NOT A PLATE AT ALL")

		require.NoError(t, err)
		assert.False(t, check.Validation.IsValid)
		assert.False(t, check.RegistryChecked)
		f.registry.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	})

	t.Run("not found is checked but absent", func(t *testing.T) {
		f := newExtractionFixture()
		f.registry.On("Lookup", mock.Anything, "AB12CDE").Return(nil, domain.ErrNotFound)

		check, err := f.svc.CheckRegistration(context.Background(), "AB12 CDE")

		require.NoError(t, err)
		assert.True(t, check.RegistryChecked)
		assert.False(t, check.FoundInRegistry)
	})

	t.Run("registry outage degrades instead of failing", func(t *testing.T) {
		f := newExtractionFixture()
		f.registry.On("Lookup", mock.Anything, "AB12CDE").Return(nil, domain.ErrRegistryUnavailable)

		check, err := f.svc.CheckRegistration(context.Background(), "AB12 CDE")

		require.NoError(t, err)
		assert.False(t, check.RegistryChecked)
		assert.False(t, check.FoundInRegistry)
	})
}
