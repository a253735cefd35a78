package domain

// FileType represents supported screenshot file types.
type FileType string

const (
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps content types to FileType for upload validation.
var AllowedFileTypes = map[string]FileType{
	"image/jpeg": FileTypeJPG,
	"image/jpg":  FileTypeJPG,
	"image/png":  FileTypePNG,
}

// FileTypeContentTypes maps FileType back to the canonical content type.
var FileTypeContentTypes = map[FileType]string{
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// FileTypeExtensions maps FileType to file extension.
var FileTypeExtensions = map[FileType]string{
	FileTypeJPG: ".jpg",
	FileTypePNG: ".png",
}

// UserRole represents a user's role.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleReviewer UserRole = "reviewer"
)

// JobStatus represents the lifecycle state of an extraction job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ReviewStatus represents the manual-review state of a completed job.
type ReviewStatus string

const (
	ReviewNotRequired ReviewStatus = "not_required"
	ReviewPending     ReviewStatus = "pending"
	ReviewApproved    ReviewStatus = "approved"
	ReviewCorrected   ReviewStatus = "corrected"
)

// ErrorKind classifies why an extraction run degraded or failed.
type ErrorKind string

const (
	ErrorKindNone                  ErrorKind = ""
	ErrorKindModelUnavailable      ErrorKind = "model_unavailable"
	ErrorKindTimeout               ErrorKind = "timeout"
	ErrorKindInsufficientModels    ErrorKind = "insufficient_models"
	ErrorKindValidationUnavailable ErrorKind = "validation_unavailable"
	ErrorKindAmbiguousConsensus    ErrorKind = "ambiguous_consensus"
)

// Extraction field names. These are the keys vision models are prompted for
// and the keys the consensus engine reconciles.
const (
	FieldRegistration  = "registration"
	FieldMOTExpiry     = "mot_expiry"
	FieldMake          = "make"
	FieldModel         = "model"
	FieldCustomerName  = "customer_name"
	FieldCustomerPhone = "customer_phone"
	FieldCustomerEmail = "customer_email"
)

// ExtractionFields is the ordered set of fields requested from every model.
var ExtractionFields = []string{
	FieldRegistration,
	FieldMOTExpiry,
	FieldMake,
	FieldModel,
	FieldCustomerName,
	FieldCustomerPhone,
	FieldCustomerEmail,
}
