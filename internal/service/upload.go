package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/domain"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/storage"
)

// UploadService implements the provider contract the host system calls:
// upload a file descriptor and populate its URL, or delete the remote
// object backing one.
type UploadService struct {
	provider storage.Provider
	logger   *logger.Logger
	http     *resty.Client
}

// NewUploadService creates a new upload service. The logger is an explicit
// dependency; there is no ambient logging handle.
func NewUploadService(provider storage.Provider, log *logger.Logger) *UploadService {
	return &UploadService{
		provider: provider,
		logger:   log,
		http:     resty.New().SetTimeout(30 * time.Second),
	}
}

// log returns the request-scoped logger when one is attached to the
// context, otherwise the logger injected at construction.
func (s *UploadService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContextOK(ctx); ok {
		return l
	}
	if s.logger != nil {
		return s.logger
	}
	return logger.GetDefault()
}

// Upload persists the descriptor's content under its derived object key
// and writes the public URL back into the descriptor. The sequence is
// strictly ordered: ensure bucket, remove any same-key object, write,
// compute URL. A failed write leaves the URL untouched.
func (s *UploadService) Upload(ctx context.Context, file *domain.FileDescriptor) error {
	key := file.ObjectKey()
	start := time.Now()

	if err := s.provider.EnsureBucket(ctx); err != nil {
		return err
	}

	// Overwrite semantics: a stale object under the same key is removed
	// before the write. The removal is tolerated to fail; the write is
	// what decides the outcome of the upload.
	exists, err := s.provider.Exists(ctx, key)
	if err != nil {
		s.log(ctx).WithField(logger.FieldObjectKey, key).WithError(err).Warn("Failed to check for existing object")
	} else if exists {
		s.log(ctx).WithField(logger.FieldObjectKey, key).Debug("Removing existing object before upload")
		if err := s.provider.Delete(ctx, key); err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				s.log(ctx).WithField(logger.FieldObjectKey, key).Warn("Existing object already gone")
			} else {
				s.log(ctx).WithField(logger.FieldObjectKey, key).WithError(err).Warn("Failed to remove existing object")
			}
		}
	}

	opts := storage.UploadOptions{
		ContentType:        file.Mime,
		ContentDisposition: fmt.Sprintf("inline; filename=%q", file.Name),
		PublicRead:         true,
	}
	if err := s.provider.Upload(ctx, key, bytes.NewReader(file.Buffer), int64(len(file.Buffer)), opts); err != nil {
		return err
	}

	file.URL = s.provider.PublicURL(key)

	entry := s.log(ctx).With(logger.Fields{
		logger.FieldObjectKey: key,
	}).WithSize(len(file.Buffer)).WithDuration(time.Since(start).Milliseconds())
	if w, h, err := imageDimensions(file.Mime, file.Buffer); err == nil {
		entry = entry.With(logger.Fields{"width": w, "height": h})
	}
	entry.Info(ctx, "Uploaded %s", file.URL)

	return nil
}

// Delete removes the object backing the descriptor. A missing object is
// logged as a warning and treated as success; any other error propagates.
func (s *UploadService) Delete(ctx context.Context, file *domain.FileDescriptor) error {
	key := file.ObjectKey()

	if err := s.provider.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.log(ctx).WithField(logger.FieldObjectKey, key).Warn("Remote object not found, nothing to delete")
			return nil
		}
		return err
	}

	s.log(ctx).WithField(logger.FieldObjectKey, key).Info("Deleted remote object")
	return nil
}

// imageDimensions decodes the config of image content for log enrichment.
// Non-image content returns an error and is skipped by the caller.
func imageDimensions(mime string, data []byte) (int, int, error) {
	if !strings.HasPrefix(mime, "image/") {
		return 0, 0, fmt.Errorf("not an image: %s", mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
