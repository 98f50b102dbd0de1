package filesystem

import (
	"context"
	stderrors "errors"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/rtstore/rtstore/pkg/config"
	"github.com/rtstore/rtstore/pkg/errors"
)

// GCS is a FileSystem backed by a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS creates a GCS filesystem from cfg.
func NewGCS(ctx context.Context, cfg config.StorageConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "gcs storage requires a bucket")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}

	return &GCS{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		prefix: strings.Trim(cfg.Root, "/"),
	}, nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	if g.prefix == "" || g.prefix == "." {
		return g.bucket.Object(strings.TrimPrefix(name, "/"))
	}
	return g.bucket.Object(path.Join(g.prefix, name))
}

// Create opens an object writer. The object is committed on Close.
func (g *GCS) Create(ctx context.Context, name string) (WritableFile, error) {
	return g.object(name).NewWriter(ctx), nil
}

// Open opens an object reader.
func (g *GCS) Open(ctx context.Context, name string) (SequentialFile, error) {
	r, err := g.object(name).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "object not found").WithDetail("name", name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open object").WithDetail("name", name)
	}
	return &readerFile{ReadCloser: r, size: r.Attrs.Size}, nil
}

// Remove deletes name.
func (g *GCS) Remove(ctx context.Context, name string) error {
	err := g.object(name).Delete(ctx)
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}
