package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/domain"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/logger"
	"github.com/digoonrails/strapi-provider-upload-google-cloud-storage/internal/storage"
)

// fakeProvider is an in-memory storage.Provider that records the call
// sequence so ordering guarantees can be asserted.
type fakeProvider struct {
	objects  map[string][]byte
	calls    []string
	lastOpts storage.UploadOptions

	ensureErr      error
	existsErr      error
	existsOverride *bool
	deleteErr      error
	uploadErr      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{objects: map[string][]byte{}}
}

func (f *fakeProvider) EnsureBucket(ctx context.Context) error {
	f.calls = append(f.calls, "ensure")
	return f.ensureErr
}

func (f *fakeProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, opts storage.UploadOptions) error {
	f.calls = append(f.calls, "upload")
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.lastOpts = opts
	return nil
}

func (f *fakeProvider) Delete(ctx context.Context, key string) error {
	f.calls = append(f.calls, "delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeProvider) Exists(ctx context.Context, key string) (bool, error) {
	f.calls = append(f.calls, "exists")
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsOverride != nil {
		return *f.existsOverride, nil
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeProvider) PublicURL(key string) string {
	return "https://storage.googleapis.com/my-bucket/" + key
}

func testFile() *domain.FileDescriptor {
	return &domain.FileDescriptor{
		Name:   "Photo.JPG",
		Ext:    ".jpg",
		Path:   "uploads",
		Mime:   "image/jpeg",
		Buffer: []byte("fake jpeg bytes"),
	}
}

func TestUploadSetsURL(t *testing.T) {
	p := newFakeProvider()
	svc := NewUploadService(p, logger.GetDefault())

	file := testFile()
	if err := svc.Upload(context.Background(), file); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	wantURL := "https://storage.googleapis.com/my-bucket/uploads/photo.jpg"
	if file.URL != wantURL {
		t.Errorf("file.URL = %q, want %q", file.URL, wantURL)
	}
	if _, ok := p.objects["uploads/photo.jpg"]; !ok {
		t.Error("object was not stored under the derived key")
	}
	if want := []string{"ensure", "exists", "upload"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want %v", p.calls, want)
	}
}

func TestUploadWriteOptions(t *testing.T) {
	p := newFakeProvider()
	svc := NewUploadService(p, logger.GetDefault())

	if err := svc.Upload(context.Background(), testFile()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if p.lastOpts.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want %q", p.lastOpts.ContentType, "image/jpeg")
	}
	if want := `inline; filename="Photo.JPG"`; p.lastOpts.ContentDisposition != want {
		t.Errorf("ContentDisposition = %q, want %q", p.lastOpts.ContentDisposition, want)
	}
	if !p.lastOpts.PublicRead {
		t.Error("PublicRead = false, want true")
	}
}

func TestUploadDeletesExistingObjectFirst(t *testing.T) {
	p := newFakeProvider()
	p.objects["uploads/photo.jpg"] = []byte("stale")
	svc := NewUploadService(p, logger.GetDefault())

	file := testFile()
	if err := svc.Upload(context.Background(), file); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	// The stale object must be removed before the new write.
	if want := []string{"ensure", "exists", "delete", "upload"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want %v", p.calls, want)
	}
	if got := string(p.objects["uploads/photo.jpg"]); got != "fake jpeg bytes" {
		t.Errorf("stored content = %q, want new bytes", got)
	}
}

func TestUploadToleratesPreDeleteNotFound(t *testing.T) {
	p := newFakeProvider()
	// existence check says yes, delete then races with a 404
	yes := true
	p.existsOverride = &yes
	p.deleteErr = storage.ErrObjectNotExist
	svc := NewUploadService(p, logger.GetDefault())

	file := testFile()
	if err := svc.Upload(context.Background(), file); err != nil {
		t.Fatalf("Upload() error = %v, want success despite pre-delete 404", err)
	}
	if file.URL == "" {
		t.Error("file.URL not set")
	}
}

func TestUploadToleratesPreDeleteFailure(t *testing.T) {
	p := newFakeProvider()
	yes := true
	p.existsOverride = &yes
	p.deleteErr = errors.New("permission denied")
	svc := NewUploadService(p, logger.GetDefault())

	if err := svc.Upload(context.Background(), testFile()); err != nil {
		t.Fatalf("Upload() error = %v, want success despite pre-delete failure", err)
	}
}

func TestUploadToleratesExistsFailure(t *testing.T) {
	p := newFakeProvider()
	p.existsErr = errors.New("transient")
	svc := NewUploadService(p, logger.GetDefault())

	file := testFile()
	if err := svc.Upload(context.Background(), file); err != nil {
		t.Fatalf("Upload() error = %v, want success despite exists failure", err)
	}
	// No delete attempt when the existence check failed.
	if want := []string{"ensure", "exists", "upload"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want %v", p.calls, want)
	}
}

func TestUploadWriteFailure(t *testing.T) {
	p := newFakeProvider()
	p.uploadErr = &storage.WriteError{Key: "uploads/photo.jpg", Err: errors.New("quota exceeded")}
	svc := NewUploadService(p, logger.GetDefault())

	file := testFile()
	err := svc.Upload(context.Background(), file)

	var writeErr *storage.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Upload() error = %v, want *storage.WriteError", err)
	}
	if file.URL != "" {
		t.Errorf("file.URL = %q, want empty after failed write", file.URL)
	}
}

func TestUploadEnsureBucketFailure(t *testing.T) {
	p := newFakeProvider()
	p.ensureErr = &storage.BucketError{Bucket: "my-bucket", Err: errors.New("denied")}
	svc := NewUploadService(p, logger.GetDefault())

	err := svc.Upload(context.Background(), testFile())
	var bucketErr *storage.BucketError
	if !errors.As(err, &bucketErr) {
		t.Fatalf("Upload() error = %v, want *storage.BucketError", err)
	}
	if want := []string{"ensure"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want %v (nothing after a failed ensure)", p.calls, want)
	}
}

func TestDeleteExistingObject(t *testing.T) {
	p := newFakeProvider()
	p.objects["uploads/photo.jpg"] = []byte("bytes")
	svc := NewUploadService(p, logger.GetDefault())

	if err := svc.Delete(context.Background(), testFile()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if want := []string{"delete"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want exactly one delete", p.calls)
	}
	if _, ok := p.objects["uploads/photo.jpg"]; ok {
		t.Error("object still present after Delete")
	}
}

func TestDeleteMissingObjectResolves(t *testing.T) {
	p := newFakeProvider()
	svc := NewUploadService(p, logger.GetDefault())

	if err := svc.Delete(context.Background(), testFile()); err != nil {
		t.Fatalf("Delete() error = %v, want nil for missing object", err)
	}
	if want := []string{"delete"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("call sequence = %v, want exactly one delete", p.calls)
	}
}

// bufferLogger builds a logger writing JSON lines into buf so tests can
// assert which logger instance a message went through.
func bufferLogger(buf *bytes.Buffer, service string) *logger.Logger {
	return logger.New(&logger.Config{
		Level:       "debug",
		Format:      "json",
		Output:      buf,
		ServiceName: service,
	})
}

func TestDeleteLogsThroughInjectedLogger(t *testing.T) {
	var injected, ambient bytes.Buffer
	old := logger.GetDefault()
	logger.SetDefaultLogger(bufferLogger(&ambient, "ambient"))
	defer logger.SetDefaultLogger(old)

	svc := NewUploadService(newFakeProvider(), bufferLogger(&injected, "svc"))

	// Missing object: resolves with a warning through the injected logger.
	if err := svc.Delete(context.Background(), testFile()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if !strings.Contains(injected.String(), "Remote object not found") {
		t.Errorf("injected logger saw nothing, output = %q", injected.String())
	}
	if ambient.Len() != 0 {
		t.Errorf("default logger received service output: %q", ambient.String())
	}
}

func TestUploadLogsThroughInjectedLogger(t *testing.T) {
	var injected, ambient bytes.Buffer
	old := logger.GetDefault()
	logger.SetDefaultLogger(bufferLogger(&ambient, "ambient"))
	defer logger.SetDefaultLogger(old)

	svc := NewUploadService(newFakeProvider(), bufferLogger(&injected, "svc"))

	if err := svc.Upload(context.Background(), testFile()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.Contains(injected.String(), "Uploaded") {
		t.Errorf("injected logger saw nothing, output = %q", injected.String())
	}
	if ambient.Len() != 0 {
		t.Errorf("default logger received service output: %q", ambient.String())
	}
}

func TestContextLoggerOverridesInjected(t *testing.T) {
	var injected, scoped bytes.Buffer
	svc := NewUploadService(newFakeProvider(), bufferLogger(&injected, "svc"))

	ctx := bufferLogger(&scoped, "request").WithContext(context.Background())
	if err := svc.Delete(ctx, testFile()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if !strings.Contains(scoped.String(), "Remote object not found") {
		t.Errorf("request-scoped logger saw nothing, output = %q", scoped.String())
	}
	if injected.Len() != 0 {
		t.Errorf("injected logger received request-scoped output: %q", injected.String())
	}
}

func TestDeletePropagatesOtherErrors(t *testing.T) {
	p := newFakeProvider()
	p.deleteErr = errors.New("permission denied")
	svc := NewUploadService(p, logger.GetDefault())

	if err := svc.Delete(context.Background(), testFile()); err == nil {
		t.Fatal("Delete() = nil, want error to propagate")
	}
}
