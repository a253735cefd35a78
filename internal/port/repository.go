package port

import (
	"context"

	"github.com/google/uuid"

	"motscan/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ScreenshotRepository persists screenshot metadata.
type ScreenshotRepository interface {
	Create(ctx context.Context, s *domain.Screenshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Screenshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExtractionJobFilter narrows job listings.
type ExtractionJobFilter struct {
	Status       *domain.JobStatus
	ReviewStatus *domain.ReviewStatus
	ReviewOnly   bool
	Limit        int
	Offset       int
}

// ExtractionJobRepository persists extraction jobs and drives the queue.
type ExtractionJobRepository interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	List(ctx context.Context, filter ExtractionJobFilter) ([]*domain.ExtractionJob, int, error)
	Update(ctx context.Context, job *domain.ExtractionJob) error

	// ClaimQueued atomically claims up to limit queued jobs, marking them
	// processing. Safe to call from multiple workers concurrently.
	ClaimQueued(ctx context.Context, limit int) ([]*domain.ExtractionJob, error)

	// Requeue puts a failed job back in the queue for another attempt.
	Requeue(ctx context.Context, id uuid.UUID) error
}
