package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
)

// S3Config holds configuration for S3-compatible storage (AWS, R2, minio)
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	PublicURL string `mapstructure:"public_url"` // public URL prefix (CDN or bucket site)
}

// Validate checks the configuration without touching the network.
func (c *S3Config) Validate() error {
	if c.AccessKey == "" {
		return &ConfigError{Field: "accessKey"}
	}
	if c.SecretKey == "" {
		return &ConfigError{Field: "secretKey"}
	}
	if c.Bucket == "" {
		return &ConfigError{Field: "bucketName"}
	}
	return nil
}

// S3Provider implements Provider for S3-compatible services
type S3Provider struct {
	client     *s3.Client
	bucketName string
	region     string
	publicURL  string
	logger     *logger.Logger

	ensured uint32
}

// NewS3Provider creates a new S3-compatible storage provider
func NewS3Provider(cfg *S3Config, log *logger.Logger) (*S3Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1" // default region for S3-compatible services
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true // path-style for S3-compatible services
		}
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}

	return &S3Provider{
		client:     client,
		bucketName: cfg.Bucket,
		region:     region,
		publicURL:  publicURL,
		logger:     log,
	}, nil
}

// endpointURL normalizes a configured endpoint into a scheme://host URL
func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// EnsureBucket creates the bucket if it doesn't exist
func (p *S3Provider) EnsureBucket(ctx context.Context) error {
	if atomic.LoadUint32(&p.ensured) == 1 {
		return nil
	}

	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.bucketName),
	})
	if err == nil {
		atomic.StoreUint32(&p.ensured, 1)
		return nil
	}

	var nf *types.NotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	p.logger.WithField(logger.FieldBucket, p.bucketName).Info("Bucket not found, creating")

	input := &s3.CreateBucketInput{
		Bucket: aws.String(p.bucketName),
	}
	// us-east-1 rejects an explicit location constraint
	if p.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(p.region),
		}
	}
	if _, err := p.client.CreateBucket(ctx, input); err != nil {
		return &BucketError{Bucket: p.bucketName, Err: err}
	}

	atomic.StoreUint32(&p.ensured, 1)
	return nil
}

// Upload writes an object with the given options
func (p *S3Provider) Upload(ctx context.Context, key string, reader io.Reader, size int64, opts UploadOptions) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucketName),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.ContentDisposition != "" {
		input.ContentDisposition = aws.String(opts.ContentDisposition)
	}
	if opts.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// Delete removes an object. S3 deletes are silent on missing keys, so the
// existence check runs first to keep the ErrObjectNotExist contract.
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	exists, err := p.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotExist
	}

	if _, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists checks if an object exists
func (p *S3Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// PublicURL returns the public URL for an object key
func (p *S3Provider) PublicURL(key string) string {
	return p.publicURL + "/" + key
}
