// Package blob stores uploaded payment proofs and gallery images.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxUploadBytes caps a single upload.
	MaxUploadBytes = 5 << 20

	FolderPaymentProofs = "payment-proofs"
	FolderGallery       = "gallery"

	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

var (
	ErrTooLarge           = errors.New("upload too large")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrEmptyUpload        = errors.New("upload is empty")
	ErrNotFound           = errors.New("blob not found")
	ErrInvalidRef         = errors.New("invalid blob ref")
	ErrInvalidBlobConfig  = errors.New("invalid blob config")
	allowedContentTypes   = map[string]string{"image/jpeg": ".jpg", "image/png": ".png", "image/webp": ".webp", "application/pdf": ".pdf"}
	errUnknownBlobBackend = errors.New("unknown blob backend")
)

// Store keeps opaque blobs and hands back a ref that the booking records persist.
type Store interface {
	Put(ctx context.Context, key string, contentType string, body []byte) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config selects the backend.
type Config struct {
	Backend   string
	Dir       string
	S3Bucket  string
	S3Prefix  string
	S3Region  string
	S3BaseURL string
}

// New builds the store named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFilesystem:
		store, err := NewFilesystem(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendS3:
		store, err := DialS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidBlobConfig, errUnknownBlobBackend, cfg.Backend)
	}
}

// Upload is a sniffed and size-checked payload ready to store.
type Upload struct {
	Ref         string
	ContentType string
	Body        []byte
}

// Prepare reads at most MaxUploadBytes, sniffs the content type, and names the blob
// under folder with a random id so client file names never reach the store.
func Prepare(folder string, body io.Reader) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Upload{}, ErrEmptyUpload
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if index := strings.Index(contentType, ";"); index >= 0 {
		contentType = contentType[:index]
	}
	extension, ok := allowedContentTypes[contentType]
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return Upload{
		Ref:         path.Join(folder, uuid.NewString()+extension),
		ContentType: contentType,
		Body:        data,
	}, nil
}

// Save prepares body and writes it, returning the ref to persist.
func Save(ctx context.Context, store Store, folder string, body io.Reader) (string, error) {
	upload, err := Prepare(folder, body)
	if err != nil {
		return "", err
	}
	if err := store.Put(ctx, upload.Ref, upload.ContentType, upload.Body); err != nil {
		return "", err
	}
	return upload.Ref, nil
}

// ContentTypeOf maps a ref's extension back to its content type.
func ContentTypeOf(ref string) string {
	extension := path.Ext(ref)
	for contentType, known := range allowedContentTypes {
		if known == extension {
			return contentType
		}
	}
	return "application/octet-stream"
}

func validateRef(ref string) error {
	cleaned := path.Clean(ref)
	if ref == "" || cleaned != ref || strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return nil
}
