// Package filesystem is the storage abstraction flushed columnar files are
// written to and read back from. Files are written once, sequentially, and
// become visible on Close.
package filesystem

import (
	"context"
	"io"

	"github.com/rtstore/rtstore/pkg/config"
	"github.com/rtstore/rtstore/pkg/errors"
)

// WritableFile receives the bytes of a new file. The file is complete only
// after Close returns nil.
type WritableFile interface {
	io.WriteCloser
}

// SequentialFile is a file opened for one front-to-back read.
type SequentialFile interface {
	io.ReadCloser
	// Size is the file length in bytes.
	Size() int64
}

// FileSystem creates and opens files by slash separated name relative to
// the filesystem root.
type FileSystem interface {
	// Create creates name, truncating any existing content.
	Create(ctx context.Context, name string) (WritableFile, error)
	// Open opens name for sequential reading.
	Open(ctx context.Context, name string) (SequentialFile, error)
	// Remove deletes name. Removing a missing file is not an error.
	Remove(ctx context.Context, name string) error
	// Close releases clients held by the filesystem.
	Close() error
}

// New builds the filesystem selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (FileSystem, error) {
	switch cfg.Backend {
	case "", config.BackendLocal:
		return NewLocal(cfg.Root)
	case config.BackendS3:
		return NewS3(ctx, cfg)
	case config.BackendGCS:
		return NewGCS(ctx, cfg)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported storage backend: %q", cfg.Backend)
	}
}

// SequentialFileReader reads a file from start to end.
type SequentialFileReader struct {
	file SequentialFile
	name string
}

// NewSequentialFileReader opens name on fs.
func NewSequentialFileReader(ctx context.Context, fs FileSystem, name string) (*SequentialFileReader, error) {
	f, err := fs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &SequentialFileReader{file: f, name: name}, nil
}

// Read reads up to len(p) bytes.
func (r *SequentialFileReader) Read(p []byte) (int, error) {
	return r.file.Read(p)
}

// Name returns the name the file was opened with.
func (r *SequentialFileReader) Name() string {
	return r.name
}

// UseDirectIO reports whether reads bypass the page cache. They never do.
func (r *SequentialFileReader) UseDirectIO() bool {
	return false
}

// FileSize returns the size of the file in bytes.
func (r *SequentialFileReader) FileSize() int64 {
	return r.file.Size()
}

// Close closes the underlying file.
func (r *SequentialFileReader) Close() error {
	return r.file.Close()
}

// ReadAll reads the whole file into memory.
func (r *SequentialFileReader) ReadAll() ([]byte, error) {
	buf := make([]byte, 0, r.FileSize())
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
