// Package memnode implements the table buffer of a memory node. Writers
// append row batches; a flush drains the buffer, converts it to one
// columnar record and dumps it as a Parquet file.
package memnode

import (
	"context"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/columnar"
	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
	"github.com/rtstore/rtstore/pkg/formats"
	"github.com/rtstore/rtstore/pkg/logger"
	"github.com/rtstore/rtstore/pkg/metrics"
	"github.com/rtstore/rtstore/pkg/observability"
	"github.com/rtstore/rtstore/pkg/row"
	"github.com/rtstore/rtstore/pkg/schema"
)

// Table buffers rows for one table.
type Table struct {
	id      string
	desc    *schema.TableDesc
	schema  *arrow.Schema
	fs      filesystem.FileSystem
	batches *row.BatchList
	encoder *columnar.Encoder

	logger  *zap.Logger
	metrics *metrics.Collector

	// serializes flushes so batches drained by one flush are requeued
	// before the next one drains
	flushMu sync.Mutex
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) { t.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Table) { t.metrics = m }
}

// NewTable creates a buffer for desc whose flushes are written to fs. The
// physical schema is mapped once here.
func NewTable(desc *schema.TableDesc, fs filesystem.FileSystem, opts ...Option) (*Table, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	arrowSchema, err := schema.ToArrowSchema(desc.Schema)
	if err != nil {
		return nil, err
	}
	id, _ := desc.ID()

	t := &Table{
		id:      id,
		desc:    desc,
		schema:  arrowSchema,
		fs:      fs,
		batches: row.NewBatchList(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get()
	}
	if t.metrics == nil {
		t.metrics = metrics.Default()
	}
	t.logger = t.logger.With(zap.String("table", id))
	t.encoder = columnar.NewEncoder(
		columnar.WithLogger(t.logger),
		columnar.WithMetrics(t.metrics),
		columnar.WithTable(id),
	)
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() string { return t.id }

// Schema returns the physical schema.
func (t *Table) Schema() *arrow.Schema { return t.schema }

// SchemaVersion returns the schema version appended batches must carry.
func (t *Table) SchemaVersion() int32 { return t.desc.Schema.Version }

// Rows returns the number of buffered rows.
func (t *Table) Rows() int { return t.batches.Rows() }

// Append buffers b. The batch must be written against the table's schema
// version and every row must have one cell per column. b must not be
// modified after Append returns.
func (t *Table) Append(b *row.Batch) error {
	if b == nil || len(b.Rows) == 0 {
		return nil
	}
	if b.SchemaVersion != t.desc.Schema.Version {
		return errors.Newf(errors.ErrorTypeValidation, "schema version %d does not match table version %d",
			b.SchemaVersion, t.desc.Schema.Version).WithDetail("table", t.id)
	}
	width := t.schema.NumFields()
	for i, r := range b.Rows {
		if len(r) != width {
			return errors.Newf(errors.ErrorTypeValidation, "row has %d cells, table has %d columns", len(r), width).
				WithDetail("table", t.id).
				WithDetail("row", i)
		}
	}

	t.batches.Append(b)
	t.metrics.BufferedRows.WithLabelValues(t.id).Add(float64(len(b.Rows)))
	return nil
}

// Snapshot converts the buffered rows without draining them. The caller
// must Release the record.
func (t *Table) Snapshot() (arrow.Record, error) {
	return t.encoder.Encode(t.schema, t.batches.Snapshot())
}

// Flush drains the buffer into a Parquet file at path and returns the
// number of rows written. Nothing is written when the buffer is empty. On
// failure the drained batches go back to the head of the buffer.
func (t *Table) Flush(ctx context.Context, path string) (int, error) {
	return t.flush(ctx, "memnode.flush", path, formats.DumpRecordBatches)
}

// Spill drains the buffer into an Arrow IPC file at path, with the same
// guarantees as Flush.
func (t *Table) Spill(ctx context.Context, path string) (int, error) {
	return t.flush(ctx, "memnode.spill", path, formats.DumpIPC)
}

type dumpFunc func(ctx context.Context, fs filesystem.FileSystem, path string, batches []arrow.Record, schema *arrow.Schema, opts ...formats.Option) error

func (t *Table) flush(ctx context.Context, op, path string, dump dumpFunc) (n int, err error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	ctx, span := observability.StartSpan(ctx, op)
	span.SetAttribute("table", t.id)
	span.SetAttribute("path", path)
	defer func() {
		span.SetAttribute("rows", n)
		span.Fail(err)
		span.End()
	}()

	batches := t.batches.Drain()
	if len(batches) == 0 {
		return 0, nil
	}
	requeue := func() { t.batches.Requeue(batches) }

	rec, err := t.encoder.Encode(t.schema, batches)
	if err != nil {
		requeue()
		t.logger.Error("flush conversion failed", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	defer rec.Release()

	err = dump(ctx, t.fs, path, []arrow.Record{rec}, t.schema,
		formats.WithLogger(t.logger),
		formats.WithMetrics(t.metrics))
	if err != nil {
		requeue()
		return 0, err
	}

	n = int(rec.NumRows())
	t.metrics.BufferedRows.WithLabelValues(t.id).Sub(float64(n))
	t.logger.Info("flushed table",
		zap.String("path", path),
		zap.Int("rows", n),
		zap.Int("batches", len(batches)))
	return n, nil
}

// Partitions lists one virtual file per buffered row.
func (t *Table) Partitions() ([]columnar.PartitionedFile, error) {
	rec, err := t.Snapshot()
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return columnar.BatchesToPartitions([]arrow.Record{rec})
}

// Describe returns the describe view of the table schema.
func (t *Table) Describe() (arrow.Record, error) {
	return t.encoder.SchemaToRecord(t.schema)
}

// ShowCreate returns the create table statement of the table.
func (t *Table) ShowCreate() (arrow.Record, error) {
	return t.encoder.SchemaToDDLRecord(t.desc.Name(), t.schema)
}
