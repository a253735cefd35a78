package service

import (
	"context"
	"log"
	"sync"
	"time"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/port"
)

// ExtractQueueWorker polls for queued extraction jobs and processes them
// with bounded concurrency.
type ExtractQueueWorker struct {
	jobRepo      port.ExtractionJobRepository
	extraction   ExtractionService
	pollInterval time.Duration
	maxRetries   int
	concurrency  int
}

// NewExtractQueueWorker creates a new queue worker.
func NewExtractQueueWorker(
	jobRepo port.ExtractionJobRepository,
	extraction ExtractionService,
	cfg config.QueueConfig,
) *ExtractQueueWorker {
	pollInterval := time.Duration(cfg.PollIntervalSecs) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &ExtractQueueWorker{
		jobRepo:      jobRepo,
		extraction:   extraction,
		pollInterval: pollInterval,
		maxRetries:   cfg.MaxRetries,
		concurrency:  concurrency,
	}
}

// Start runs the polling loop until ctx is cancelled. In-flight jobs are
// drained before Start returns.
func (w *ExtractQueueWorker) Start(ctx context.Context) {
	log.Printf("extractQueueWorker: starting (poll=%s, concurrency=%d, maxRetries=%d)",
		w.pollInterval, w.concurrency, w.maxRetries)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Printf("extractQueueWorker: shutting down, draining in-flight jobs")
			wg.Wait()
			log.Printf("extractQueueWorker: stopped")
			return
		case <-ticker.C:
			available := w.concurrency - len(sem)
			if available <= 0 {
				continue
			}

			jobs, err := w.jobRepo.ClaimQueued(ctx, available)
			if err != nil {
				log.Printf("extractQueueWorker: claim failed: %v", err)
				continue
			}

			for _, job := range jobs {
				sem <- struct{}{}
				wg.Add(1)
				go func(job *domain.ExtractionJob) {
					defer wg.Done()
					defer func() { <-sem }()

					// Detached from the polling ctx so shutdown does not
					// abandon a claimed job mid-extraction.
					jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()
					w.extraction.ProcessJob(jobCtx, job, w.maxRetries)
				}(job)
			}
		}
	}
}
