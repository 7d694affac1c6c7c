package storage

import (
	"context"
	"io"
)

// UploadOptions carries per-object write options.
type UploadOptions struct {
	ContentType        string
	ContentDisposition string
	PublicRead         bool
}

// Provider defines the interface for object storage backends
type Provider interface {
	// EnsureBucket creates the bucket if it doesn't exist. Safe to call
	// before every upload.
	EnsureBucket(ctx context.Context) error

	// Upload writes an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, opts UploadOptions) error

	// Delete deletes an object from storage. Returns ErrObjectNotExist
	// when there is no object under the key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL returns the public URL for accessing an object
	PublicURL(key string) string
}
