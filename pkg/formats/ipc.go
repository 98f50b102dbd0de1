package formats

import (
	"bytes"
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
)

// DumpIPC writes batches to an Arrow IPC file at path on fs with LZ4 frame
// compressed buffers.
func DumpIPC(ctx context.Context, fs filesystem.FileSystem, path string, batches []arrow.Record, schema *arrow.Schema, opts ...Option) error {
	o := buildOptions(opts)
	written, err := dumpIPC(ctx, fs, path, batches, schema, o)
	o.record(formatIPC, written, err)
	if err != nil {
		o.logger.Error("ipc dump failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

func dumpIPC(ctx context.Context, fs filesystem.FileSystem, path string, batches []arrow.Record, schema *arrow.Schema, o *options) (int64, error) {
	if schema == nil {
		return 0, errors.New(errors.ErrorTypeValidation, "schema is required")
	}

	f, err := fs.Create(ctx, path)
	if err != nil {
		return 0, errors.WrapPersistence(err, path, "failed to create file")
	}
	s := newSink(f)

	w, err := ipc.NewFileWriter(s.buf,
		ipc.WithSchema(schema),
		ipc.WithAllocator(o.mem),
		ipc.WithLZ4(),
	)
	if err != nil {
		_ = f.Close()
		return 0, errors.WrapPersistence(err, path, "failed to create ipc writer")
	}

	for i, rec := range batches {
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			_ = f.Close()
			return 0, errors.WrapPersistence(err, path, "failed to write record batch").
				WithDetail("batch", i)
		}
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		return 0, errors.WrapPersistence(err, path, "failed to close ipc writer")
	}
	if err := s.finish(); err != nil {
		return 0, errors.WrapPersistence(err, path, "failed to close file")
	}
	return s.cw.n, nil
}

// ReadIPC reads every record batch of the Arrow IPC file at path. The
// caller must Release each returned record.
func ReadIPC(ctx context.Context, fs filesystem.FileSystem, path string, opts ...Option) ([]arrow.Record, error) {
	o := buildOptions(opts)

	r, err := filesystem.NewSequentialFileReader(ctx, fs, path)
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to open file")
	}
	data, err := r.ReadAll()
	_ = r.Close()
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to read file")
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(o.mem))
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to open ipc file")
	}
	defer fr.Close()

	out := make([]arrow.Record, 0, fr.NumRecords())
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			for _, r := range out {
				r.Release()
			}
			return nil, errors.WrapPersistence(err, path, "failed to read record batch").
				WithDetail("batch", i)
		}
		rec.Retain()
		out = append(out, rec)
	}
	return out, nil
}
