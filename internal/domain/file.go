package domain

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// RelatedRef points at the host entity that owns an uploaded file,
// e.g. {Ref: "article", RefID: "42"}.
type RelatedRef struct {
	Ref   string `json:"ref"`
	RefID string `json:"refId"`
}

// FileDescriptor is the unit of work handed over by the host system.
// The provider only reads the input fields and writes URL after a
// successful upload.
type FileDescriptor struct {
	Name    string      `json:"name"`
	Ext     string      `json:"ext"` // includes the leading dot, e.g. ".jpg"
	Mime    string      `json:"mime"`
	Buffer  []byte      `json:"-"`
	Path    string      `json:"path,omitempty"`
	Hash    string      `json:"hash,omitempty"`
	Related *RelatedRef `json:"related,omitempty"`

	// URL is populated by the upload flow.
	URL string `json:"url,omitempty"`
}

// ObjectKey returns the canonical remote object key:
// <folder>/<slug(basename)><lower(ext)>. The folder is the explicit Path
// when present, then the related reference (ref/refId), then the content
// hash. Two descriptors only collide when they are intentionally identical.
func (f *FileDescriptor) ObjectKey() string {
	return f.folder() + "/" + f.baseName()
}

// DeleteKey returns the key under the legacy delete derivation, which
// ignores the related-reference folder rule (explicit Path, else hash).
// Kept for hosts whose existing objects were stored under that scheme.
func (f *FileDescriptor) DeleteKey() string {
	folder := f.Path
	if folder == "" {
		folder = f.ContentHash()
	}
	return strings.Trim(folder, "/") + "/" + f.baseName()
}

// ContentHash returns the descriptor's hash, falling back to the MD5 of
// the buffer when the host did not supply one.
func (f *FileDescriptor) ContentHash() string {
	if f.Hash != "" {
		return f.Hash
	}
	sum := md5.Sum(f.Buffer)
	return hex.EncodeToString(sum[:])
}

func (f *FileDescriptor) folder() string {
	if f.Path != "" {
		return strings.Trim(f.Path, "/")
	}
	if f.Related != nil && f.Related.Ref != "" {
		return f.Related.Ref + "/" + f.Related.RefID
	}
	return f.ContentHash()
}

// baseName returns slug(name without extension) + lowercased extension.
func (f *FileDescriptor) baseName() string {
	base := f.Name
	if ext := filepath.Ext(base); ext != "" && strings.EqualFold(ext, f.Ext) {
		base = strings.TrimSuffix(base, ext)
	}
	return Slugify(base) + strings.ToLower(f.Ext)
}

// Slugify generates a URL-safe slug from a name.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	// Remove invalid characters
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}

	// Remove leading/trailing dashes and collapse multiple dashes
	slug = result.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	return slug
}
