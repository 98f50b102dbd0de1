// Package formats writes finalized columnar batches to durable files and
// reads them back.
//
// Parquet is the flush format: one file per flush, GZIP compressed, bound
// to the batches' schema. Arrow IPC files with LZ4 buffer compression are
// used for spills that are read back by the same process.
package formats

import (
	"bufio"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/logger"
	"github.com/rtstore/rtstore/pkg/metrics"
)

const (
	formatParquet = "parquet"
	formatIPC     = "arrow"

	statusOK    = "ok"
	statusError = "error"

	writeBufferSize = 256 * 1024
)

type options struct {
	mem     memory.Allocator
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a dump or read call.
type Option func(*options)

// WithAllocator sets the allocator used when reading files back.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.mem == nil {
		o.mem = memory.NewGoAllocator()
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}
	return o
}

// countingWriter counts bytes passed through to the file.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// sink buffers writes to an open file. Encoders that close their sink only
// see the bufio.Writer, so closing the file stays with the caller.
type sink struct {
	file io.WriteCloser
	cw   *countingWriter
	buf  *bufio.Writer
}

func newSink(f io.WriteCloser) *sink {
	cw := &countingWriter{w: f}
	return &sink{file: f, cw: cw, buf: bufio.NewWriterSize(cw, writeBufferSize)}
}

// finish flushes buffered bytes and closes the file.
func (s *sink) finish() error {
	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func (o *options) record(format string, written int64, err error) {
	if err != nil {
		o.metrics.FilesDumped.WithLabelValues(format, statusError).Inc()
		return
	}
	o.metrics.FilesDumped.WithLabelValues(format, statusOK).Inc()
	o.metrics.BytesDumped.WithLabelValues(format).Add(float64(written))
}
