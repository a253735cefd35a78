package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"motscan/internal/domain"
	"motscan/internal/port"
)

type extractionRepo struct {
	db *sqlx.DB
}

// NewExtractionJobRepo creates a new PostgreSQL-backed ExtractionJobRepository.
func NewExtractionJobRepo(db *sqlx.DB) port.ExtractionJobRepository {
	return &extractionRepo{db: db}
}

func (r *extractionRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	if job.ReviewStatus == "" {
		job.ReviewStatus = domain.ReviewNotRequired
	}

	query := `INSERT INTO extraction_jobs (id, screenshot_id, requested_by, status, attempts,
		result_data, overall_confidence, requires_manual_review, review_status,
		reviewed_by, reviewed_at, review_notes, error_kind, error_message,
		created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.ScreenshotID, job.RequestedBy, job.Status, job.Attempts,
		job.ResultData, job.OverallConfidence, job.RequiresManualReview, job.ReviewStatus,
		job.ReviewedBy, job.ReviewedAt, job.ReviewNotes, job.ErrorKind, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	var job domain.ExtractionJob
	err := r.db.GetContext(ctx, &job, "SELECT * FROM extraction_jobs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetByID: %w", err)
	}
	return &job, nil
}

func (r *extractionRepo) List(ctx context.Context, filter port.ExtractionJobFilter) ([]*domain.ExtractionJob, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argn := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, *filter.Status)
		argn++
	}
	if filter.ReviewStatus != nil {
		where += fmt.Sprintf(" AND review_status = $%d", argn)
		args = append(args, *filter.ReviewStatus)
		argn++
	}
	if filter.ReviewOnly {
		where += " AND requires_manual_review = TRUE AND review_status = 'pending'"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM extraction_jobs " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT * FROM extraction_jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, argn, argn+1)
	args = append(args, limit, filter.Offset)

	jobs := []*domain.ExtractionJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List: %w", err)
	}
	return jobs, total, nil
}

func (r *extractionRepo) Update(ctx context.Context, job *domain.ExtractionJob) error {
	job.UpdatedAt = time.Now().UTC()

	query := `UPDATE extraction_jobs SET
		status = $2, attempts = $3, result_data = $4, overall_confidence = $5,
		requires_manual_review = $6, review_status = $7, reviewed_by = $8,
		reviewed_at = $9, review_notes = $10, error_kind = $11, error_message = $12,
		updated_at = $13, completed_at = $14
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Attempts, job.ResultData, job.OverallConfidence,
		job.RequiresManualReview, job.ReviewStatus, job.ReviewedBy,
		job.ReviewedAt, job.ReviewNotes, job.ErrorKind, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ClaimQueued atomically flips up to limit queued jobs to processing and
// returns them. FOR UPDATE SKIP LOCKED keeps concurrent workers from
// claiming the same job.
func (r *extractionRepo) ClaimQueued(ctx context.Context, limit int) ([]*domain.ExtractionJob, error) {
	query := `UPDATE extraction_jobs SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM extraction_jobs
			WHERE status = 'queued'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	jobs := []*domain.ExtractionJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("extractionRepo.ClaimQueued: %w", err)
	}
	return jobs, nil
}

func (r *extractionRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE extraction_jobs SET status = 'queued', error_kind = '', error_message = NULL, updated_at = NOW()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("extractionRepo.Requeue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
