package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"motscan/internal/config"
	"motscan/internal/dvla"
	"motscan/internal/email/noop"
	"motscan/internal/email/ses"
	"motscan/internal/ensemble"
	"motscan/internal/handler"
	"motscan/internal/port"
	"motscan/internal/repository/postgres"
	"motscan/internal/router"
	"motscan/internal/service"
	s3storage "motscan/internal/storage/s3"
	"motscan/internal/vision"
	_ "motscan/internal/vision/claude"
	_ "motscan/internal/vision/gemini"
	_ "motscan/internal/vision/openai"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	screenshotRepo := postgres.NewScreenshotRepo(db)
	jobRepo := postgres.NewExtractionJobRepo(db)

	// Storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Vision model clients
	var models []port.VisionModel
	for _, pc := range cfg.Vision.Enabled() {
		pc := pc
		model, err := vision.NewModel(&pc)
		if err != nil {
			return fmt.Errorf("failed to initialize vision model: %w", err)
		}
		models = append(models, model)
		log.Printf("vision model enabled: %s (weight=%.2f)", model.Name(), model.Weight())
	}
	if len(models) < cfg.Ensemble.MinRequiredSuccesses {
		return fmt.Errorf("only %d vision models configured, need at least %d",
			len(models), cfg.Ensemble.MinRequiredSuccesses)
	}

	// Vehicle registry
	registry := dvla.NewClient(cfg.DVLA)

	// Review notifier
	var notifier port.ReviewNotifier
	if cfg.Email.Provider == "ses" {
		notifier, err = ses.NewSESNotifier(cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
	} else {
		notifier = noop.NewNoopNotifier()
	}

	// Extraction pipeline and services
	pipeline := ensemble.NewPipeline(models, registry, cfg.Ensemble)
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	fileSvc := service.NewFileService(screenshotRepo, s3Client, &cfg.S3)
	extractionSvc := service.NewExtractionService(
		jobRepo, screenshotRepo, s3Client, pipeline, registry, notifier, models, cfg.Ensemble)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	screenshotH := handler.NewScreenshotHandler(fileSvc)
	extractionH := handler.NewExtractionHandler(extractionSvc)
	healthH := handler.NewHealthHandler(db, models, cfg.Ensemble.MinRequiredSuccesses)

	r := router.Setup(cfg, authSvc, authH, screenshotH, extractionH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Queue worker
	worker := service.NewExtractQueueWorker(jobRepo, extractionSvc, cfg.Queue)
	workerDone := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(workerDone)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-workerDone
	return nil
}
