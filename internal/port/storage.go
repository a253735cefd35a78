package port

import (
	"context"
	"io"
)

// ObjectStorage abstracts blob storage for screenshots.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader, size int64) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGetURL(ctx context.Context, key string, expirySecs int64) (string, error)
}
