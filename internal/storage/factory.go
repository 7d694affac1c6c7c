package storage

import (
	"context"
	"strings"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
)

// Provider type identifiers.
const (
	ProviderGCS = "gcs"
	ProviderS3  = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	Provider string    `mapstructure:"provider"` // gcs (default) or s3
	GCS      GCSConfig `mapstructure:"gcs"`
	S3       S3Config  `mapstructure:"s3"`
}

// New creates a Provider instance based on the configuration.
// Parameters:
//   - ctx: context used for client construction.
//   - cfg: storage configuration including provider selection.
//   - log: logger injected into the provider.
//
// Returns:
//   - Provider: initialized storage backend.
//   - error: non-nil if the configuration is invalid or the client cannot
//     be created.
func New(ctx context.Context, cfg *Config, log *logger.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGCS:
		return NewGCSProvider(ctx, &cfg.GCS, log)
	case ProviderS3:
		return NewS3Provider(&cfg.S3, log)
	default:
		return nil, &ConfigError{Field: "provider", Reason: cfg.Provider + " is not supported"}
	}
}
