package medium

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File stores each record as <dir>/<key><ext>. Writes go through a temporary
// file and a rename so readers never observe a partial record.
type File struct {
	dir string
	ext string
}

// FileOption configures a File medium.
type FileOption func(*File)

// WithExtension sets the record file extension. Default is ".json".
func WithExtension(ext string) FileOption {
	return func(f *File) {
		f.ext = ext
	}
}

// NewFile creates dir when missing and returns a File medium rooted there.
func NewFile(dir string, opts ...FileOption) (*File, error) {
	if dir == "" {
		return nil, errors.New("medium: file directory is required")
	}
	f := &File{dir: dir, ext: ".json"}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("medium: create %s: %w", dir, err)
	}
	return f, nil
}

func (f *File) GetItem(_ context.Context, key string) (string, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("medium: read %s: %w", path, err)
	}
	return string(raw), true, nil
}

func (f *File) SetItem(_ context.Context, key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("medium: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("medium: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("medium: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("medium: write %s: %w", path, err)
	}
	return nil
}

func (f *File) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key+f.ext), nil
}
