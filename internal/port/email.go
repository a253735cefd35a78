package port

import (
	"context"

	"github.com/google/uuid"
)

// ReviewNotification is the payload for a manual-review email.
type ReviewNotification struct {
	JobID        uuid.UUID
	Registration string
	Reasons      []string
	Confidence   float64
}

// ReviewNotifier notifies the review inbox when a job needs manual review.
type ReviewNotifier interface {
	SendReviewRequested(ctx context.Context, n ReviewNotification) error
}
