package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/domain"
)

// ImportFromURL fetches a remote file and runs it through the normal
// upload flow. The descriptor is keyed by content hash unless a folder is
// given.
func (s *UploadService) ImportFromURL(ctx context.Context, rawURL, folder string) (*domain.FileDescriptor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported source url scheme: %s", u.Scheme)
	}

	resp, err := s.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode())
	}

	data := resp.Body()
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}

	mime := resp.Header().Get("Content-Type")
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	file := &domain.FileDescriptor{
		Name:   name,
		Ext:    strings.ToLower(filepath.Ext(name)),
		Mime:   mime,
		Buffer: data,
		Path:   folder,
	}
	// hash falls back to the content MD5 inside the key derivation

	if err := s.Upload(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}
