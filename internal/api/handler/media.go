package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/domain"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/service"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/storage"
)

// MediaHandler exposes the upload provider over HTTP for hosts that
// integrate over the wire instead of linking the package.
type MediaHandler struct {
	uploads        *service.UploadService
	maxUploadBytes int64
}

// NewMediaHandler creates a new media handler. maxUploadMB of zero
// disables the size cap.
func NewMediaHandler(uploads *service.UploadService, maxUploadMB int64) *MediaHandler {
	return &MediaHandler{
		uploads:        uploads,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}
}

type fileRef struct {
	Name    string             `json:"name" binding:"required"`
	Ext     string             `json:"ext"`
	Path    string             `json:"path"`
	Hash    string             `json:"hash"`
	Related *domain.RelatedRef `json:"related"`
}

type importRequest struct {
	URL  string `json:"url" binding:"required"`
	Path string `json:"path"`
}

// Upload accepts a multipart form upload ("file", optional "path") and
// persists it through the provider.
func (h *MediaHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field 'file'"})
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}

	file := &domain.FileDescriptor{
		Name:   header.Filename,
		Ext:    strings.ToLower(filepath.Ext(header.Filename)),
		Mime:   mime,
		Buffer: data,
		Path:   c.PostForm("path"),
	}

	if err := h.uploads.Upload(c.Request.Context(), file); err != nil {
		status := http.StatusBadGateway
		var cfgErr *storage.ConfigError
		if errors.As(err, &cfgErr) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":  file.URL,
		"key":  file.ObjectKey(),
		"name": file.Name,
		"mime": file.Mime,
		"size": len(file.Buffer),
	})
}

// Import fetches a remote file by URL and persists it through the
// provider.
func (h *MediaHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: url is required"})
		return
	}

	file, err := h.uploads.ImportFromURL(c.Request.Context(), req.URL, req.Path)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":  file.URL,
		"key":  file.ObjectKey(),
		"name": file.Name,
		"mime": file.Mime,
		"size": len(file.Buffer),
	})
}

// Delete removes the remote object addressed by the posted descriptor.
// A missing object still succeeds.
func (h *MediaHandler) Delete(c *gin.Context) {
	var ref fileRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: name is required"})
		return
	}

	// Without any key material the derived key would hash an empty
	// buffer and address an object that was never written.
	if ref.Path == "" && ref.Hash == "" && (ref.Related == nil || ref.Related.Ref == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file reference needs a path, hash or related entity"})
		return
	}

	file := &domain.FileDescriptor{
		Name:    ref.Name,
		Ext:     ref.Ext,
		Path:    ref.Path,
		Hash:    ref.Hash,
		Related: ref.Related,
	}

	if err := h.uploads.Delete(c.Request.Context(), file); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": file.ObjectKey()})
}
