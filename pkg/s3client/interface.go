package s3client

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the operations the ingestion pipeline and the
// analysis stage need from an S3-compatible backend.
type ObjectStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, objectKey string) error
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	GetBucketName() string
}

var _ ObjectStorage = (*Client)(nil)
