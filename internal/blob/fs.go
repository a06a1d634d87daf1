package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Filesystem keeps blobs as files under a root directory. The media type is
// derived from the key's extension.
type Filesystem struct {
	root string
}

// NewFilesystem creates root when needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "photos"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

func (f *Filesystem) path(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Put writes to a temporary file and renames it into place.
func (f *Filesystem) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	p, err := f.path(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Info{}, fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return Info{}, fmt.Errorf("creating blob file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			slog.Error("removing partial blob", "path", tmp.Name(), "error", rerr)
		}
		return Info{}, fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Info{}, fmt.Errorf("storing blob: %w", err)
	}

	if contentType == "" {
		contentType = ExtContentType(key)
	}
	return Info{Key: key, Size: n, ContentType: contentType}, nil
}

func (f *Filesystem) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	p, err := f.path(key)
	if err != nil {
		return Info{}, nil, err
	}
	file, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return Info{}, nil, ErrNotFound
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("opening blob: %w", err)
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return Info{}, nil, fmt.Errorf("reading blob info: %w", err)
	}
	return Info{Key: key, Size: st.Size(), ContentType: ExtContentType(key)}, file, nil
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}
