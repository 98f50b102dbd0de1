package filesystem

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rtstore/rtstore/pkg/config"
	"github.com/rtstore/rtstore/pkg/errors"
)

const defaultUploadPartSize = 5 * 1024 * 1024 // 5MB, the S3 minimum

// S3 is a FileSystem backed by an S3 bucket. Files are streamed to a
// multipart upload that completes on Close.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3 creates an S3 filesystem from cfg.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3 storage requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	partSize := cfg.UploadPartSize
	if partSize < defaultUploadPartSize {
		partSize = defaultUploadPartSize
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		if cfg.UploadConcurrency > 0 {
			u.Concurrency = cfg.UploadConcurrency
		}
	})

	return &S3{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Root, "/"),
	}, nil
}

func (s *S3) key(name string) string {
	if s.prefix == "" || s.prefix == "." {
		return strings.TrimPrefix(name, "/")
	}
	return path.Join(s.prefix, name)
}

// Create starts a streaming upload of name.
func (s *S3) Create(ctx context.Context, name string) (WritableFile, error) {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(name)),
			Body:   pr,
		})
		// unblock writers if the upload gave up early
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Open fetches name for reading.
func (s *S3) Open(ctx context.Context, name string) (SequentialFile, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get object").
			WithDetail("bucket", s.bucket).
			WithDetail("key", s.key(name))
	}
	return &readerFile{ReadCloser: out.Body, size: aws.ToInt64(out.ContentLength)}, nil
}

// Remove deletes name.
func (s *S3) Remove(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3) Close() error { return nil }

type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the stream and waits for the upload to complete.
func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

type readerFile struct {
	io.ReadCloser
	size int64
}

func (f *readerFile) Size() int64 { return f.size }
