// Package storage writes generated artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// StorageService is the object storage used for candidate reports.
type StorageService interface {
	// PutObject stores reader under fileKey, replacing any existing object.
	PutObject(ctx context.Context, bucket, fileKey, contentType string, reader io.Reader, size int64) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
