// Package s3client wraps the MinIO SDK for the S3-compatible bucket
// that stores site photos and their thumbnails.
package s3client

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config represents the configuration for an S3 client.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Validate checks the required connection settings.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return eris.New("s3: endpoint is required")
	}
	if c.Bucket == "" {
		return eris.New("s3: bucket name is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return eris.New("s3: access key and secret key are required")
	}
	return nil
}

// Client represents an S3 client.
type Client struct {
	client *minio.Client
	config Config
}

// New creates a new S3 client and verifies the bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "s3: create client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, eris.Wrap(err, "s3: check bucket")
	}
	if !exists {
		return nil, eris.Errorf("s3: bucket %s does not exist", cfg.Bucket)
	}

	zap.L().Info("connected to object storage",
		zap.String("endpoint", endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return &Client{client: client, config: cfg}, nil
}

// UploadFile uploads an object to the bucket.
func (c *Client) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectKey, reader, size, opts)
	if err != nil {
		return eris.Wrap(err, "s3: upload file")
	}

	zap.L().Debug("uploaded object",
		zap.String("key", objectKey),
		zap.Int64("size", info.Size),
		zap.String("etag", info.ETag),
	)
	return nil
}

// ObjectExists checks if an object exists in the bucket.
func (c *Client) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.config.Bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, eris.Wrap(err, "s3: stat object")
	}
	return true, nil
}

// GetObject retrieves an object from the bucket.
func (c *Client) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.config.Bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "s3: get object")
	}
	return obj, nil
}

// DeleteObject deletes an object from the bucket.
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	err := c.client.RemoveObject(ctx, c.config.Bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return eris.Wrap(err, "s3: delete object")
	}
	zap.L().Debug("deleted object", zap.String("key", objectKey))
	return nil
}

// GetPresignedURL generates a presigned URL for an object.
func (c *Client) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.config.Bucket, objectKey, expiry, nil)
	if err != nil {
		return "", eris.Wrap(err, "s3: presign object")
	}
	return u.String(), nil
}

// GetBucketName returns the bucket name.
func (c *Client) GetBucketName() string {
	return c.config.Bucket
}
