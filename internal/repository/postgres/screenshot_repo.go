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

type screenshotRepo struct {
	db *sqlx.DB
}

// NewScreenshotRepo creates a new PostgreSQL-backed ScreenshotRepository.
func NewScreenshotRepo(db *sqlx.DB) port.ScreenshotRepository {
	return &screenshotRepo{db: db}
}

func (r *screenshotRepo) Create(ctx context.Context, s *domain.Screenshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()

	query := `INSERT INTO screenshots (id, uploaded_by, file_name, file_type, content_type, size_bytes, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UploadedBy, s.FileName, s.FileType, s.ContentType,
		s.SizeBytes, s.StorageKey, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("screenshotRepo.Create: %w", err)
	}
	return nil
}

func (r *screenshotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Screenshot, error) {
	var s domain.Screenshot
	err := r.db.GetContext(ctx, &s, "SELECT * FROM screenshots WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("screenshotRepo.GetByID: %w", err)
	}
	return &s, nil
}

func (r *screenshotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM screenshots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("screenshotRepo.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
