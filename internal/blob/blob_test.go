package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (api *memoryObjects) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)
	api.objects[key] = body
	api.types[key] = aws.ToString(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (api *memoryObjects) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	body, ok := api.objects[aws.ToString(input.Bucket)+"/"+aws.ToString(input.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestPrepare(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		body        []byte
		expectedErr error
		contentType string
	}{
		{name: "png", body: pngHeader, contentType: "image/png"},
		{name: "pdf", body: []byte("%PDF-1.7\n"), contentType: "application/pdf"},
		{name: "empty", body: nil, expectedErr: ErrEmptyUpload},
		{name: "text", body: []byte("hello there"), expectedErr: ErrUnsupportedType},
		{name: "too large", body: append(append([]byte{}, pngHeader...), make([]byte, MaxUploadBytes)...), expectedErr: ErrTooLarge},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			upload, err := Prepare(FolderPaymentProofs, bytes.NewReader(testCase.body))
			if testCase.expectedErr != nil {
				if !errors.Is(err, testCase.expectedErr) {
					test.Fatalf("expected %v, got %v", testCase.expectedErr, err)
				}
				return
			}
			if err != nil {
				test.Fatalf("prepare: %v", err)
			}
			if upload.ContentType != testCase.contentType || !strings.HasPrefix(upload.Ref, FolderPaymentProofs+"/") {
				test.Fatalf("unexpected upload %q %q", upload.Ref, upload.ContentType)
			}
			if ContentTypeOf(upload.Ref) != testCase.contentType {
				test.Fatalf("extension does not map back to %s", testCase.contentType)
			}
		})
	}
}

func TestFilesystemRoundTrip(test *testing.T) {
	test.Parallel()
	store, err := NewFilesystem(test.TempDir())
	if err != nil {
		test.Fatalf("filesystem: %v", err)
	}
	ctx := context.Background()
	ref, err := Save(ctx, store, FolderGallery, bytes.NewReader(pngHeader))
	if err != nil {
		test.Fatalf("save: %v", err)
	}
	reader, err := store.Get(ctx, ref)
	if err != nil {
		test.Fatalf("get: %v", err)
	}
	defer reader.Close()
	stored, _ := io.ReadAll(reader)
	if !bytes.Equal(stored, pngHeader) {
		test.Fatalf("stored bytes differ")
	}
	if _, err := store.Get(ctx, "gallery/missing.png"); !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, ref := range []string{"../etc/passwd", "/abs.png", "gallery/../../x.png", ""} {
		if _, err := store.Get(ctx, ref); !errors.Is(err, ErrInvalidRef) {
			test.Fatalf("expected ErrInvalidRef for %q, got %v", ref, err)
		}
	}
}

func TestS3RoundTrip(test *testing.T) {
	test.Parallel()
	api := newMemoryObjects()
	store, err := NewS3(api, "hotelbook-uploads", "/prod/")
	if err != nil {
		test.Fatalf("s3: %v", err)
	}
	ctx := context.Background()
	ref, err := Save(ctx, store, FolderPaymentProofs, bytes.NewReader(pngHeader))
	if err != nil {
		test.Fatalf("save: %v", err)
	}
	objectKey := "hotelbook-uploads/prod/" + ref
	if api.types[objectKey] != "image/png" {
		test.Fatalf("expected object at %s with image/png, got %v", objectKey, api.types)
	}
	reader, err := store.Get(ctx, ref)
	if err != nil {
		test.Fatalf("get: %v", err)
	}
	defer reader.Close()
	if stored, _ := io.ReadAll(reader); !bytes.Equal(stored, pngHeader) {
		test.Fatalf("stored bytes differ")
	}
	if _, err := store.Get(ctx, "payment-proofs/none.png"); !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := NewS3(api, " ", ""); !errors.Is(err, ErrInvalidBlobConfig) {
		test.Fatalf("expected ErrInvalidBlobConfig, got %v", err)
	}
}

func TestNewRejectsUnknownBackend(test *testing.T) {
	test.Parallel()
	if _, err := New(context.Background(), Config{Backend: "ftp"}); !errors.Is(err, ErrInvalidBlobConfig) {
		test.Fatalf("expected ErrInvalidBlobConfig, got %v", err)
	}
	if _, err := New(context.Background(), Config{Backend: "filesystem"}); !errors.Is(err, ErrInvalidBlobConfig) {
		test.Fatalf("expected missing dir to be rejected, got %v", err)
	}
}
