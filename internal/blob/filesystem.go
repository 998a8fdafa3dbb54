package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem keeps blobs under a root directory.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: blob dir is required", ErrInvalidBlobConfig)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlobConfig, err)
	}
	return &Filesystem{root: root}, nil
}

// Put writes through a temp file and rename, so readers never see a partial blob.
func (store *Filesystem) Put(ctx context.Context, key string, _ string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := store.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("blob dir: %w", err)
	}
	temp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("blob temp: %w", err)
	}
	defer func() { _ = os.Remove(temp.Name()) }()
	if _, err := temp.Write(body); err != nil {
		_ = temp.Close()
		return fmt.Errorf("blob write: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("blob close: %w", err)
	}
	if err := os.Rename(temp.Name(), target); err != nil {
		return fmt.Errorf("blob rename: %w", err)
	}
	return nil
}

func (store *Filesystem) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := store.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("blob open: %w", err)
	}
	return file, nil
}

func (store *Filesystem) resolve(key string) (string, error) {
	if err := validateRef(key); err != nil {
		return "", err
	}
	return filepath.Join(store.root, filepath.FromSlash(key)), nil
}
