package config

import (
	"testing"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Provider != storage.ProviderGCS {
		t.Errorf("Storage.Provider = %q, want %q", cfg.Storage.Provider, storage.ProviderGCS)
	}
	if cfg.Storage.GCS.Location != storage.LocationUS {
		t.Errorf("GCS.Location = %q, want %q", cfg.Storage.GCS.Location, storage.LocationUS)
	}
	if cfg.Storage.GCS.BaseURL != storage.BaseURLDefault {
		t.Errorf("GCS.BaseURL = %q, want %q", cfg.Storage.GCS.BaseURL, storage.BaseURLDefault)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GCS_BUCKET", "env-bucket")
	t.Setenv("GCS_BUCKET_LOCATION", "eu")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.GCS.Bucket != "env-bucket" {
		t.Errorf("GCS.Bucket = %q, want %q", cfg.Storage.GCS.Bucket, "env-bucket")
	}
	if cfg.Storage.GCS.Location != "eu" {
		t.Errorf("GCS.Location = %q, want %q", cfg.Storage.GCS.Location, "eu")
	}
}
