package formats

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
)

// DumpRecordBatches writes batches, in order, to a new Parquet file at path
// on fs. An existing file is truncated. Every batch must carry schema.
//
// The first failing step aborts the dump and is returned as a persistence
// error. A file left behind by a failed dump is not a valid Parquet file.
func DumpRecordBatches(ctx context.Context, fs filesystem.FileSystem, path string, batches []arrow.Record, schema *arrow.Schema, opts ...Option) error {
	o := buildOptions(opts)
	written, err := dumpParquet(ctx, fs, path, batches, schema)
	o.record(formatParquet, written, err)
	if err != nil {
		o.logger.Error("parquet dump failed", zap.String("path", path), zap.Error(err))
		return err
	}
	o.logger.Debug("parquet file written",
		zap.String("path", path),
		zap.Int("batches", len(batches)),
		zap.Int64("bytes", written))
	return nil
}

// DumpFile writes batches to a Parquet file on the local disk.
func DumpFile(path string, batches []arrow.Record, schema *arrow.Schema, opts ...Option) error {
	fs, err := filesystem.NewLocal(filepath.Dir(path))
	if err != nil {
		return errors.WrapPersistence(err, path, "failed to open directory")
	}
	return DumpRecordBatches(context.Background(), fs, filepath.Base(path), batches, schema, opts...)
}

func dumpParquet(ctx context.Context, fs filesystem.FileSystem, path string, batches []arrow.Record, schema *arrow.Schema) (int64, error) {
	if schema == nil {
		return 0, errors.New(errors.ErrorTypeValidation, "schema is required")
	}

	f, err := fs.Create(ctx, path)
	if err != nil {
		return 0, errors.WrapPersistence(err, path, "failed to create file")
	}
	s := newSink(f)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Gzip),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, s.buf, props, arrowProps)
	if err != nil {
		_ = f.Close()
		return 0, errors.WrapPersistence(err, path, "failed to create parquet writer")
	}

	for i, rec := range batches {
		if err := ctx.Err(); err != nil {
			_ = fw.Close()
			_ = f.Close()
			return 0, errors.WrapPersistence(err, path, "dump cancelled")
		}
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			_ = f.Close()
			return 0, errors.WrapPersistence(err, path, "failed to write record batch").
				WithDetail("batch", i)
		}
	}

	if err := fw.Close(); err != nil {
		_ = f.Close()
		return 0, errors.WrapPersistence(err, path, "failed to close parquet writer")
	}
	if err := s.finish(); err != nil {
		return 0, errors.WrapPersistence(err, path, "failed to close file")
	}
	return s.cw.n, nil
}

// ReadRecordBatches reads every row group of the Parquet file at path. The
// caller must Release each returned record.
func ReadRecordBatches(ctx context.Context, fs filesystem.FileSystem, path string, opts ...Option) ([]arrow.Record, error) {
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

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to open parquet file")
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, o.mem)
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to create arrow reader")
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, errors.WrapPersistence(err, path, "failed to read table")
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()

	var out []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		out = append(out, rec)
	}
	if err := tr.Err(); err != nil {
		for _, rec := range out {
			rec.Release()
		}
		return nil, errors.WrapPersistence(err, path, "failed to read record batch")
	}
	return out, nil
}
