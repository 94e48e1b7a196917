package state

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBlobStore stores one file per key under a directory
type FileBlobStore struct {
	fs  afero.Fs
	dir string
}

// NewFileBlobStore creates a file-backed blob store rooted at dir
func NewFileBlobStore(fs afero.Fs, dir string) *FileBlobStore {
	return &FileBlobStore{fs: fs, dir: dir}
}

// path maps a key to a file name that cannot escape dir
func (f *FileBlobStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := afero.ReadFile(f.fs, f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (f *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	return writeFileAtomic(f.fs, f.path(key), data)
}

func (f *FileBlobStore) Delete(ctx context.Context, key string) error {
	if err := f.fs.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and renames
// it over path, so readers see either the old or the new record
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
