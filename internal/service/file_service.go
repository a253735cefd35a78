package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/port"
)

// ScreenshotUploadInput is the DTO for screenshot upload requests.
type ScreenshotUploadInput struct {
	UploadedBy uuid.UUID
	File       multipart.File
	Header     *multipart.FileHeader
}

// FileService manages screenshot uploads and storage.
type FileService interface {
	Upload(ctx context.Context, input ScreenshotUploadInput) (*domain.Screenshot, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Screenshot, error)
	DownloadBytes(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type fileService struct {
	screenshotRepo port.ScreenshotRepository
	storage        port.ObjectStorage
	cfg            *config.S3Config
}

// NewFileService creates a new FileService implementation.
func NewFileService(
	screenshotRepo port.ScreenshotRepository,
	storage port.ObjectStorage,
	cfg *config.S3Config,
) FileService {
	return &fileService{
		screenshotRepo: screenshotRepo,
		storage:        storage,
		cfg:            cfg,
	}
}

func (s *fileService) Upload(ctx context.Context, input ScreenshotUploadInput) (*domain.Screenshot, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext != "jpg" && ext != "png" {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Magic-byte content type detection, never trust the extension alone.
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	detectedType := http.DetectContentType(buf[:n])
	fileType, ok := domain.AllowedFileTypes[detectedType]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	id := uuid.New()
	contentType := domain.FileTypeContentTypes[fileType]
	storageKey := fmt.Sprintf("screenshots/%s%s", id, domain.FileTypeExtensions[fileType])

	screenshot := &domain.Screenshot{
		ID:          id,
		UploadedBy:  input.UploadedBy,
		FileName:    input.Header.Filename,
		FileType:    fileType,
		ContentType: contentType,
		SizeBytes:   input.Header.Size,
		StorageKey:  storageKey,
	}

	log.Printf("fileService.Upload: uploading screenshot %s (%s, %d bytes) by user %s",
		input.Header.Filename, contentType, input.Header.Size, input.UploadedBy)

	if err := s.storage.Upload(ctx, storageKey, contentType, input.File, input.Header.Size); err != nil {
		log.Printf("fileService.Upload: storage upload failed: %v", err)
		return nil, domain.ErrUploadFailed
	}

	if err := s.screenshotRepo.Create(ctx, screenshot); err != nil {
		return nil, fmt.Errorf("creating screenshot metadata: %w", err)
	}

	return screenshot, nil
}

func (s *fileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Screenshot, error) {
	return s.screenshotRepo.GetByID(ctx, id)
}

// DownloadBytes fetches the screenshot bytes and content type for extraction.
func (s *fileService) DownloadBytes(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	screenshot, err := s.screenshotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.storage.Download(ctx, screenshot.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("downloading screenshot %s: %w", id, err)
	}
	return data, screenshot.ContentType, nil
}

func (s *fileService) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	screenshot, err := s.screenshotRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignGetURL(ctx, screenshot.StorageKey, s.cfg.PresignExpiry)
}

func (s *fileService) Delete(ctx context.Context, id uuid.UUID) error {
	log.Printf("fileService.Delete: deleting screenshot %s", id)

	screenshot, err := s.screenshotRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, screenshot.StorageKey); err != nil {
		log.Printf("fileService.Delete: failed to delete from storage: %v", err)
		return fmt.Errorf("deleting from storage: %w", err)
	}

	return s.screenshotRepo.Delete(ctx, id)
}
