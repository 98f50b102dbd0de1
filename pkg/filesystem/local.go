package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rtstore/rtstore/pkg/errors"
)

// Local is a FileSystem rooted at a directory on the local disk.
type Local struct {
	root string
}

// NewLocal creates a Local filesystem rooted at root, creating the
// directory if needed.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create storage root").
			WithDetail("root", root)
	}
	return &Local{root: root}, nil
}

// Root returns the root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) path(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", errors.Newf(errors.ErrorTypeValidation, "file name %q escapes the storage root", name)
	}
	return filepath.Join(l.root, rel), nil
}

// Create creates name and any missing parent directories.
func (l *Local) Create(_ context.Context, name string) (WritableFile, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(p) //nolint:gosec // G304: name is checked against the root
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Open opens name for reading.
func (l *Local) Open(_ context.Context, name string) (SequentialFile, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p) //nolint:gosec // G304: name is checked against the root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "file not found").WithDetail("name", name)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &localFile{File: f, size: st.Size()}, nil
}

// Remove deletes name.
func (l *Local) Remove(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op.
func (l *Local) Close() error { return nil }

type localFile struct {
	*os.File
	size int64
}

func (f *localFile) Size() int64 { return f.size }
