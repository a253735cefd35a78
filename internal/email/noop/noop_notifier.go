package noop

import (
	"context"
	"log"
	"strings"

	"motscan/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a no-op ReviewNotifier that logs instead of sending.
func NewNoopNotifier() port.ReviewNotifier {
	return &noopNotifier{}
}

func (s *noopNotifier) SendReviewRequested(_ context.Context, n port.ReviewNotification) error {
	log.Printf("[NOOP EMAIL] Review requested for extraction %s (reg=%s, confidence=%.2f): %s",
		n.JobID, n.Registration, n.Confidence, strings.Join(n.Reasons, "; "))
	return nil
}
