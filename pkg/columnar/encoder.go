package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/logger"
	"github.com/rtstore/rtstore/pkg/metrics"
	"github.com/rtstore/rtstore/pkg/row"
)

// Encoder converts row batches into Arrow records. An Encoder holds no
// per-call state and is safe for concurrent use.
type Encoder struct {
	mem     memory.Allocator
	logger  *zap.Logger
	metrics *metrics.Collector
	table   string
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithAllocator sets the allocator used for builders and arrays.
func WithAllocator(mem memory.Allocator) Option {
	return func(e *Encoder) { e.mem = mem }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Encoder) { e.metrics = m }
}

// WithTable sets the table label attached to logs and metrics.
func WithTable(name string) Option {
	return func(e *Encoder) { e.table = name }
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{table: "unknown"}
	for _, opt := range opts {
		opt(e)
	}
	if e.mem == nil {
		e.mem = memory.NewGoAllocator()
	}
	if e.logger == nil {
		e.logger = logger.Get()
	}
	if e.metrics == nil {
		e.metrics = metrics.Default()
	}
	return e
}

// RowsToColumns converts batches with a default Encoder.
func RowsToColumns(schema *arrow.Schema, batches []*row.Batch) (arrow.Record, error) {
	return NewEncoder().Encode(schema, batches)
}

// Encode converts batches into one record bound to schema. Rows keep their
// input order. Every row must have exactly one cell per field and each
// cell must match its column's builder; any failure aborts the whole call
// and no record is returned.
//
// Columns whose type has no builder are skipped while reading cells and
// come back as all-null arrays. An empty batch list yields a zero-row
// record without allocating any builder.
//
// The caller owns the returned record and must Release it.
func (e *Encoder) Encode(schema *arrow.Schema, batches []*row.Batch) (arrow.Record, error) {
	timer := metrics.NewTimer()

	rec, rows, err := e.encode(schema, batches)
	if err != nil {
		e.metrics.ConversionErrors.WithLabelValues(e.table, string(errors.TypeOf(err))).Inc()
		e.logger.Debug("row batch conversion failed",
			zap.String("table", e.table),
			zap.Int("batches", len(batches)),
			zap.Error(err))
		return nil, err
	}

	e.metrics.RowsConverted.WithLabelValues(e.table).Add(float64(rows))
	e.metrics.BatchesConverted.WithLabelValues(e.table).Add(float64(len(batches)))
	timer.ObserveDuration(e.metrics.ConversionLatency.WithLabelValues(e.table))
	return rec, nil
}

func (e *Encoder) encode(schema *arrow.Schema, batches []*row.Batch) (arrow.Record, int, error) {
	if schema == nil {
		return nil, 0, errors.New(errors.ErrorTypeValidation, "schema is nil")
	}

	fields := schema.Fields()
	if len(batches) == 0 {
		return e.assemble(schema, make([]*columnBuilder, len(fields)), 0), 0, nil
	}

	kinds := make([]builderKind, len(fields))
	supported := make([]bool, len(fields))
	for i, f := range fields {
		kinds[i], supported[i] = builderForType(f.Type)
		if !supported[i] {
			e.logger.Debug("column type has no builder, filling with nulls",
				zap.String("table", e.table),
				zap.String("column", f.Name),
				zap.Stringer("type", f.Type))
		}
	}

	builders := make([]*columnBuilder, len(fields))
	ok := false
	defer func() {
		if ok {
			return
		}
		for _, b := range builders {
			if b != nil {
				b.release()
			}
		}
	}()

	total := 0
	for bi, batch := range batches {
		if batch == nil {
			continue
		}
		for ri, r := range batch.Rows {
			if len(r) != len(fields) {
				return nil, 0, errors.Newf(errors.ErrorTypeEncoding,
					"row has %d cells, schema has %d fields", len(r), len(fields)).
					WithDetail("batch", bi).
					WithDetail("row", ri)
			}
			for i, cell := range r {
				if !supported[i] {
					continue
				}
				if builders[i] == nil {
					builders[i] = newColumnBuilder(e.mem, fields[i], kinds[i], len(batch.Rows))
				}
				if err := builders[i].append(cell); err != nil {
					return nil, 0, err
				}
			}
			total++
		}
	}

	ok = true
	return e.assemble(schema, builders, total), total, nil
}

// assemble finalizes builders in column order and releases them. Columns
// without a builder become null arrays of the record length.
func (e *Encoder) assemble(schema *arrow.Schema, builders []*columnBuilder, rows int) arrow.Record {
	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		if b == nil {
			cols[i] = array.MakeArrayOfNull(e.mem, schema.Field(i).Type, rows)
			continue
		}
		cols[i] = b.finish()
		b.release()
	}

	rec := array.NewRecord(schema, cols, int64(rows))
	for _, c := range cols {
		c.Release()
	}
	return rec
}
