// Package storage provides the file system document blob store.
// Clean Architecture: Adapter implementing ports.BlobStore.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// FileBlobStore keeps one file per storage key in a directory.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates dir if needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create blob directory: %v", entities.ErrStorage, err)
	}
	return &FileBlobStore{dir: dir}, nil
}

func (b *FileBlobStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: invalid blob key %q", entities.ErrStorage, key)
	}
	return filepath.Join(b.dir, key), nil
}

// Put writes content through a temp file and rename, so readers never see
// a partial blob.
func (b *FileBlobStore) Put(key string, content []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write blob %s: %v", entities.ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: rename blob %s: %v", entities.ErrStorage, key, err)
	}
	return nil
}

// Get reads a blob. A missing blob wraps ErrDocumentNotFound.
func (b *FileBlobStore) Get(key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", entities.ErrDocumentNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %v", entities.ErrStorage, key, err)
	}
	return data, nil
}

// Delete removes a blob; deleting a missing blob is not an error.
func (b *FileBlobStore) Delete(key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete blob %s: %v", entities.ErrStorage, key, err)
	}
	return nil
}
