package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user of the system.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Screenshot represents an uploaded garage-software screenshot stored in S3.
type Screenshot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileType    FileType  `db:"file_type" json:"file_type"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey  string    `db:"storage_key" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ExtractionJob represents one ensemble extraction run over a screenshot.
type ExtractionJob struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	ScreenshotID         uuid.UUID       `db:"screenshot_id" json:"screenshot_id"`
	RequestedBy          uuid.UUID       `db:"requested_by" json:"requested_by"`
	Status               JobStatus       `db:"status" json:"status"`
	Attempts             int             `db:"attempts" json:"attempts"`
	ResultData           json.RawMessage `db:"result_data" json:"result_data,omitempty"`
	OverallConfidence    *float64        `db:"overall_confidence" json:"overall_confidence,omitempty"`
	RequiresManualReview bool            `db:"requires_manual_review" json:"requires_manual_review"`
	ReviewStatus         ReviewStatus    `db:"review_status" json:"review_status"`
	ReviewedBy           *uuid.UUID      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes          *string         `db:"review_notes" json:"review_notes,omitempty"`
	ErrorKind            ErrorKind       `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage         *string         `db:"error_message" json:"error_message,omitempty"`
	ModelsUsed           []string        `db:"-" json:"models_used,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt          *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// ReviewResolution carries a reviewer's decision on a job in manual review.
type ReviewResolution struct {
	Approve     bool              `json:"approve"`
	Corrections map[string]string `json:"corrections,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}
