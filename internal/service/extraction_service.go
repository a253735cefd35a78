package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/ensemble"
	"motscan/internal/port"
	"motscan/internal/validation"
)

// ExtractionPipeline runs the multi-model extraction for one screenshot.
type ExtractionPipeline interface {
	Run(ctx context.Context, input port.ExtractInput) (*ensemble.Result, error)
}

// RegistrationCheck is the result of validating a registration against the
// format rules and, when the format is valid, the vehicle registry.
type RegistrationCheck struct {
	Validation      validation.RegistrationResult `json:"validation"`
	RegistryChecked bool                          `json:"registry_checked"`
	FoundInRegistry bool                          `json:"found_in_registry"`
	Record          *port.RegistryRecord          `json:"record,omitempty"`
}

// ModelInfo describes one configured vision model.
type ModelInfo struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	TimeoutSecs int     `json:"timeout_secs"`
}

// EnsembleInfo describes the ensemble configuration in effect.
type EnsembleInfo struct {
	Models               []ModelInfo `json:"models"`
	MinRequiredSuccesses int         `json:"min_required_successes"`
	MinModelAgreement    int         `json:"min_model_agreement"`
	MinConfidenceScore   float64     `json:"min_confidence_score"`
	RequiredFields       []string    `json:"required_fields"`
}

// ExtractionService manages extraction jobs end to end.
type ExtractionService interface {
	CreateJob(ctx context.Context, screenshotID, requestedBy uuid.UUID) (*domain.ExtractionJob, error)
	ExtractSync(ctx context.Context, screenshotID, requestedBy uuid.UUID) (*domain.ExtractionJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	ListJobs(ctx context.Context, filter port.ExtractionJobFilter) ([]*domain.ExtractionJob, int, error)
	ProcessJob(ctx context.Context, job *domain.ExtractionJob, maxRetries int)
	Retry(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	ResolveReview(ctx context.Context, id, reviewerID uuid.UUID, resolution domain.ReviewResolution) (*domain.ExtractionJob, error)
	CheckRegistration(ctx context.Context, registration string) (*RegistrationCheck, error)
	ModelsInfo() EnsembleInfo
}

type extractionService struct {
	jobRepo        port.ExtractionJobRepository
	screenshotRepo port.ScreenshotRepository
	storage        port.ObjectStorage
	pipeline       ExtractionPipeline
	registry       port.VehicleRegistry
	notifier       port.ReviewNotifier
	models         []port.VisionModel
	cfg            config.EnsembleConfig
}

// NewExtractionService creates a new ExtractionService implementation.
func NewExtractionService(
	jobRepo port.ExtractionJobRepository,
	screenshotRepo port.ScreenshotRepository,
	storage port.ObjectStorage,
	pipeline ExtractionPipeline,
	registry port.VehicleRegistry,
	notifier port.ReviewNotifier,
	models []port.VisionModel,
	cfg config.EnsembleConfig,
) ExtractionService {
	return &extractionService{
		jobRepo:        jobRepo,
		screenshotRepo: screenshotRepo,
		storage:        storage,
		pipeline:       pipeline,
		registry:       registry,
		notifier:       notifier,
		models:         models,
		cfg:            cfg,
	}
}

func (s *extractionService) CreateJob(ctx context.Context, screenshotID, requestedBy uuid.UUID) (*domain.ExtractionJob, error) {
	if _, err := s.screenshotRepo.GetByID(ctx, screenshotID); err != nil {
		return nil, err
	}

	job := &domain.ExtractionJob{
		ID:           uuid.New(),
		ScreenshotID: screenshotID,
		RequestedBy:  requestedBy,
		Status:       domain.JobStatusQueued,
		ReviewStatus: domain.ReviewNotRequired,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	log.Printf("extractionService.CreateJob: queued job %s for screenshot %s", job.ID, screenshotID)
	return job, nil
}

// ExtractSync runs the pipeline inline instead of going through the queue.
// The caller waits for the result; no retries are attempted.
func (s *extractionService) ExtractSync(ctx context.Context, screenshotID, requestedBy uuid.UUID) (*domain.ExtractionJob, error) {
	if _, err := s.screenshotRepo.GetByID(ctx, screenshotID); err != nil {
		return nil, err
	}

	job := &domain.ExtractionJob{
		ID:           uuid.New(),
		ScreenshotID: screenshotID,
		RequestedBy:  requestedBy,
		Status:       domain.JobStatusProcessing,
		ReviewStatus: domain.ReviewNotRequired,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.ProcessJob(ctx, job, 1)
	return job, nil
}

func (s *extractionService) GetJob(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *extractionService) ListJobs(ctx context.Context, filter port.ExtractionJobFilter) ([]*domain.ExtractionJob, int, error) {
	return s.jobRepo.List(ctx, filter)
}

// ProcessJob runs the extraction pipeline for a claimed job and persists the
// outcome. The job is expected to already be in processing status. Transient
// failures are requeued until maxRetries is exhausted.
func (s *extractionService) ProcessJob(ctx context.Context, job *domain.ExtractionJob, maxRetries int) {
	job.Attempts++

	screenshot, err := s.screenshotRepo.GetByID(ctx, job.ScreenshotID)
	if err != nil {
		s.failJob(ctx, job, domain.ErrorKindNone, fmt.Sprintf("loading screenshot: %v", err))
		return
	}

	imageData, err := s.storage.Download(ctx, screenshot.StorageKey)
	if err != nil {
		s.retryOrFail(ctx, job, maxRetries, domain.ErrorKindNone, fmt.Sprintf("downloading screenshot: %v", err))
		return
	}

	result, err := s.pipeline.Run(ctx, port.ExtractInput{
		ImageData:   imageData,
		ContentType: screenshot.ContentType,
	})
	if err != nil {
		kind := domain.ErrorKindModelUnavailable
		switch {
		case errors.Is(err, domain.ErrInsufficientModels):
			kind = domain.ErrorKindInsufficientModels
		case errors.Is(err, context.DeadlineExceeded):
			kind = domain.ErrorKindTimeout
		}
		s.retryOrFail(ctx, job, maxRetries, kind, err.Error())
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.failJob(ctx, job, domain.ErrorKindNone, fmt.Sprintf("encoding result: %v", err))
		return
	}

	now := time.Now().UTC()
	confidence := result.OverallConfidence
	job.Status = domain.JobStatusCompleted
	job.ResultData = data
	job.OverallConfidence = &confidence
	job.RequiresManualReview = result.RequiresManualReview
	job.ErrorKind = result.ErrorKind
	job.ErrorMessage = nil
	job.CompletedAt = &now
	if result.RequiresManualReview {
		job.ReviewStatus = domain.ReviewPending
	} else {
		job.ReviewStatus = domain.ReviewNotRequired
	}

	if err := s.jobRepo.Update(ctx, job); err != nil {
		log.Printf("extractionService.ProcessJob: failed to persist result for job %s: %v", job.ID, err)
		return
	}

	log.Printf("extractionService.ProcessJob: job %s completed (confidence=%.2f, review=%t, models=%v)",
		job.ID, result.OverallConfidence, result.RequiresManualReview, result.ModelsUsed)

	if result.RequiresManualReview {
		s.notifyReview(ctx, job, result)
	}
}

func (s *extractionService) retryOrFail(ctx context.Context, job *domain.ExtractionJob, maxRetries int, kind domain.ErrorKind, msg string) {
	if job.Attempts < maxRetries {
		log.Printf("extractionService: job %s attempt %d/%d failed, requeueing: %s",
			job.ID, job.Attempts, maxRetries, msg)
		job.Status = domain.JobStatusQueued
		job.ErrorKind = kind
		job.ErrorMessage = &msg
		if err := s.jobRepo.Update(ctx, job); err != nil {
			log.Printf("extractionService: failed to requeue job %s: %v", job.ID, err)
		}
		return
	}
	s.failJob(ctx, job, kind, msg)
}

func (s *extractionService) failJob(ctx context.Context, job *domain.ExtractionJob, kind domain.ErrorKind, msg string) {
	log.Printf("extractionService: job %s failed permanently: %s", job.ID, msg)
	job.Status = domain.JobStatusFailed
	job.ErrorKind = kind
	job.ErrorMessage = &msg
	if err := s.jobRepo.Update(ctx, job); err != nil {
		log.Printf("extractionService: failed to mark job %s failed: %v", job.ID, err)
	}
}

func (s *extractionService) notifyReview(ctx context.Context, job *domain.ExtractionJob, result *ensemble.Result) {
	registration := ""
	if fc, ok := result.PerField[domain.FieldRegistration]; ok {
		registration = fc.NormalizedValue
	}
	err := s.notifier.SendReviewRequested(ctx, port.ReviewNotification{
		JobID:        job.ID,
		Registration: registration,
		Reasons:      result.ReviewReasons,
		Confidence:   result.OverallConfidence,
	})
	if err != nil {
		// Notification is best-effort, the review queue is the source of truth.
		log.Printf("extractionService: review notification for job %s failed: %v", job.ID, err)
	}
}

// Retry puts a failed job back on the queue.
func (s *extractionService) Retry(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, fmt.Errorf("job %s is %s, only failed jobs can be retried: %w",
			id, job.Status, domain.ErrJobNotCompleted)
	}
	if err := s.jobRepo.Requeue(ctx, id); err != nil {
		return nil, err
	}
	return s.jobRepo.GetByID(ctx, id)
}

// ResolveReview approves a flagged extraction as-is or applies reviewer
// corrections to the stored result.
func (s *extractionService) ResolveReview(ctx context.Context, id, reviewerID uuid.UUID, resolution domain.ReviewResolution) (*domain.ExtractionJob, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}
	if !job.RequiresManualReview || job.ReviewStatus != domain.ReviewPending {
		return nil, domain.ErrJobNotReviewable
	}

	now := time.Now().UTC()
	job.ReviewedBy = &reviewerID
	job.ReviewedAt = &now
	if resolution.Notes != "" {
		job.ReviewNotes = &resolution.Notes
	}

	if resolution.Approve {
		job.ReviewStatus = domain.ReviewApproved
	} else {
		if len(resolution.Corrections) == 0 {
			return nil, fmt.Errorf("rejecting a review requires corrections: %w", domain.ErrJobNotReviewable)
		}
		data, err := applyCorrections(job.ResultData, resolution.Corrections)
		if err != nil {
			return nil, fmt.Errorf("applying corrections to job %s: %w", id, err)
		}
		job.ResultData = data
		job.ReviewStatus = domain.ReviewCorrected
	}

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("extractionService.ResolveReview: job %s resolved as %s by %s", id, job.ReviewStatus, reviewerID)
	return job, nil
}

// applyCorrections overwrites the consensus for each corrected field with the
// reviewer-supplied value at full confidence.
func applyCorrections(resultData []byte, corrections map[string]string) ([]byte, error) {
	var result ensemble.Result
	if err := json.Unmarshal(resultData, &result); err != nil {
		return nil, fmt.Errorf("decoding stored result: %w", err)
	}
	if result.PerField == nil {
		result.PerField = map[string]ensemble.FieldConsensus{}
	}
	for field, value := range corrections {
		normalize := ensemble.NormalizerFor(field)
		result.PerField[field] = ensemble.FieldConsensus{
			Field:                field,
			Value:                value,
			NormalizedValue:      normalize(value),
			AggregatedConfidence: 1.0,
			AgreementLevel:       1.0,
		}
	}
	return json.Marshal(result)
}

// CheckRegistration validates a registration's format and, when the format
// is valid, looks it up in the vehicle registry.
func (s *extractionService) CheckRegistration(ctx context.Context, registration string) (*RegistrationCheck, error) {
	check := &RegistrationCheck{
		Validation: validation.ValidateRegistration(registration, time.Now().UTC()),
	}
	if !check.Validation.IsValid {
		return check, nil
	}

	record, err := s.registry.Lookup(ctx, check.Validation.Normalized)
	switch {
	case err == nil:
		check.RegistryChecked = true
		check.FoundInRegistry = true
		check.Record = record
	case errors.Is(err, domain.ErrNotFound):
		check.RegistryChecked = true
	case errors.Is(err, domain.ErrRegistryUnavailable):
		log.Printf("extractionService.CheckRegistration: registry unavailable: %v", err)
	default:
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	return check, nil
}

func (s *extractionService) ModelsInfo() EnsembleInfo {
	info := EnsembleInfo{
		MinRequiredSuccesses: s.cfg.MinRequiredSuccesses,
		MinModelAgreement:    s.cfg.MinModelAgreement,
		MinConfidenceScore:   s.cfg.MinConfidenceScore,
		RequiredFields:       s.cfg.RequiredFields,
	}
	for _, m := range s.models {
		info.Models = append(info.Models, ModelInfo{
			Name:        m.Name(),
			Weight:      m.Weight(),
			TimeoutSecs: int(m.Timeout() / time.Second),
		})
	}
	return info
}
