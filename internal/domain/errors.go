package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserInactive        = errors.New("user is inactive")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrJobNotFound         = errors.New("extraction job not found")
	ErrJobNotCompleted     = errors.New("extraction job has not completed")
	ErrJobNotReviewable    = errors.New("extraction job is not awaiting review")
	ErrInsufficientModels  = errors.New("insufficient vision models responded")
	ErrInvalidRegistration = errors.New("registration does not match any UK format")
	ErrRegistryUnavailable = errors.New("vehicle registry unavailable")
)
