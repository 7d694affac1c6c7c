package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
)

// Base URL templates accepted for public links. {bucket-name} is replaced
// with the configured bucket. The non-default variants are for buckets
// named after a custom domain.
const (
	BaseURLDefault = "https://storage.googleapis.com/{bucket-name}"
	BaseURLHTTPS   = "https://{bucket-name}"
	BaseURLHTTP    = "http://{bucket-name}"
)

// Multi-region locations supported by the provider.
const (
	LocationAsia = "asia"
	LocationEU   = "eu"
	LocationUS   = "us"
)

const multiRegionalClass = "MULTI_REGIONAL"

// ServiceAccount holds the mandatory fields of a GCS service-account key.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// GCSConfig holds configuration for the Google Cloud Storage provider.
type GCSConfig struct {
	ServiceAccount string `mapstructure:"service_account"` // JSON key blob
	Bucket         string `mapstructure:"bucket"`
	Location       string `mapstructure:"location"` // asia, eu, us
	BaseURL        string `mapstructure:"base_url"`
}

// Validate checks the configuration and parses the service-account JSON.
// It is pure: no network activity happens here. Returns ConfigError naming
// the offending field.
func (c *GCSConfig) Validate() (*ServiceAccount, error) {
	if c.ServiceAccount == "" {
		return nil, &ConfigError{Field: "serviceAccount"}
	}
	if c.Bucket == "" {
		return nil, &ConfigError{Field: "bucketName"}
	}

	var sa ServiceAccount
	if err := json.Unmarshal([]byte(c.ServiceAccount), &sa); err != nil {
		return nil, &ConfigError{Field: "serviceAccount", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if sa.ProjectID == "" {
		return nil, &ConfigError{Field: "serviceAccount", Reason: "missing project_id"}
	}
	if sa.ClientEmail == "" {
		return nil, &ConfigError{Field: "serviceAccount", Reason: "missing client_email"}
	}
	if sa.PrivateKey == "" {
		return nil, &ConfigError{Field: "serviceAccount", Reason: "missing private_key"}
	}

	switch c.Location {
	case "", LocationAsia, LocationEU, LocationUS:
	default:
		return nil, &ConfigError{Field: "bucketLocation", Reason: fmt.Sprintf("%q is not one of asia, eu, us", c.Location)}
	}

	switch c.BaseURL {
	case "", BaseURLDefault, BaseURLHTTPS, BaseURLHTTP:
	default:
		return nil, &ConfigError{Field: "baseUrl", Reason: fmt.Sprintf("%q is not a supported template", c.BaseURL)}
	}

	return &sa, nil
}

// GCSProvider implements Provider for Google Cloud Storage
type GCSProvider struct {
	client     *gcstorage.Client
	bucket     *gcstorage.BucketHandle
	projectID  string
	bucketName string
	location   string
	baseURL    string
	logger     *logger.Logger

	// set once the bucket is known to exist, to skip the attrs round
	// trip on subsequent uploads
	ensured uint32
}

// NewGCSProvider validates the configuration and builds the storage
// client. Validation failures surface before any network activity.
func NewGCSProvider(ctx context.Context, cfg *GCSConfig, log *logger.Logger) (*GCSProvider, error) {
	sa, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	client, err := gcstorage.NewClient(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccount)))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	location := cfg.Location
	if location == "" {
		location = LocationUS
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURLDefault
	}

	return &GCSProvider{
		client:     client,
		bucket:     client.Bucket(cfg.Bucket),
		projectID:  sa.ProjectID,
		bucketName: cfg.Bucket,
		location:   location,
		baseURL:    baseURL,
		logger:     log,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist. The bucket is
// created as multi-regional at the configured location. Once the bucket
// has been seen, later calls return without a round trip.
func (p *GCSProvider) EnsureBucket(ctx context.Context) error {
	if atomic.LoadUint32(&p.ensured) == 1 {
		return nil
	}

	_, err := p.bucket.Attrs(ctx)
	if err == nil {
		atomic.StoreUint32(&p.ensured, 1)
		return nil
	}
	if !errors.Is(err, gcstorage.ErrBucketNotExist) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	p.logger.WithFields(logger.Fields{
		logger.FieldBucket: p.bucketName,
		"location":         p.location,
	}).Info("Bucket not found, creating")

	if err := p.bucket.Create(ctx, p.projectID, &gcstorage.BucketAttrs{
		Location:     p.location,
		StorageClass: multiRegionalClass,
	}); err != nil {
		return &BucketError{Bucket: p.bucketName, Err: err}
	}

	atomic.StoreUint32(&p.ensured, 1)
	return nil
}

// Upload writes an object with the given options
func (p *GCSProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, opts UploadOptions) error {
	w := p.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.ContentDisposition = opts.ContentDisposition
	if opts.PublicRead {
		w.PredefinedACL = "publicRead"
	}

	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		return &WriteError{Key: key, Err: err}
	}
	if err := w.Close(); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// Delete removes an object, mapping the storage 404 to ErrObjectNotExist
func (p *GCSProvider) Delete(ctx context.Context, key string) error {
	err := p.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return ErrObjectNotExist
	}
	return err
}

// Exists checks if an object exists
func (p *GCSProvider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// PublicURL returns the public URL for an object key
func (p *GCSProvider) PublicURL(key string) string {
	base := strings.Replace(p.baseURL, "{bucket-name}", p.bucketName, 1)
	return base + "/" + key
}

// Close releases the underlying client
func (p *GCSProvider) Close() error {
	return p.client.Close()
}
