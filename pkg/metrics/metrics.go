// Package metrics provides Prometheus collectors for the rtstore write path.
//
// A Collector groups every metric the conversion engine, the persistence
// writer and the memory node emit. Collectors are registered on a caller
// supplied registerer so tests can use an isolated prometheus.Registry:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg, "rtstore")
//	m.RowsConverted.WithLabelValues("orders").Add(1000)
//
// Components that are not handed a Collector use Default, which is
// registered once on prometheus.DefaultRegisterer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the rtstore collectors.
type Collector struct {
	// RowsConverted counts rows turned into columnar batches.
	// Labels: table
	RowsConverted *prometheus.CounterVec
	// BatchesConverted counts row batches consumed by the encoder.
	// Labels: table
	BatchesConverted *prometheus.CounterVec
	// ConversionErrors counts failed conversions by error kind.
	// Labels: table, kind
	ConversionErrors *prometheus.CounterVec
	// ConversionLatency is the distribution of encode durations in seconds.
	// Labels: table
	ConversionLatency *prometheus.HistogramVec
	// FilesDumped counts columnar files written.
	// Labels: format, status
	FilesDumped *prometheus.CounterVec
	// BytesDumped counts bytes handed to the filesystem by the persistence writer.
	// Labels: format
	BytesDumped *prometheus.CounterVec
	// DDLSkippedFields counts fields left out of generated DDL text.
	// Labels: physical_type
	DDLSkippedFields *prometheus.CounterVec
	// BufferedRows tracks rows waiting in memory node tables.
	// Labels: table
	BufferedRows *prometheus.GaugeVec
}

// New creates a Collector whose metrics are registered on reg under namespace.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RowsConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_converted_total",
				Help:      "Total number of rows converted to columnar batches",
			},
			[]string{"table"},
		),
		BatchesConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "row_batches_converted_total",
				Help:      "Total number of row batches consumed by the encoder",
			},
			[]string{"table"},
		),
		ConversionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversion_errors_total",
				Help:      "Total number of failed conversions by error kind",
			},
			[]string{"table", "kind"},
		),
		ConversionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Row to columnar conversion latency in seconds",
				Buckets: []float64{
					0.0001, // 100μs - single small batch
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms - typical flush
					1,      // 1s
					10,     // 10s - very large flush
				},
			},
			[]string{"table"},
		),
		FilesDumped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_dumped_total",
				Help:      "Total number of columnar files written",
			},
			[]string{"format", "status"},
		),
		BytesDumped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_dumped_total",
				Help:      "Total number of bytes written by the persistence writer",
			},
			[]string{"format"},
		),
		DDLSkippedFields: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ddl_skipped_fields_total",
				Help:      "Fields omitted from generated create table statements",
			},
			[]string{"physical_type"},
		),
		BufferedRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "buffered_rows",
				Help:      "Rows buffered in memory node tables awaiting flush",
			},
			[]string{"table"},
		),
	}
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the process wide Collector registered on
// prometheus.DefaultRegisterer.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = New(prometheus.DefaultRegisterer, "rtstore")
	})
	return defaultCollector
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time in seconds on o and returns it.
func (t *Timer) ObserveDuration(o prometheus.Observer) time.Duration {
	d := time.Since(t.start)
	if o != nil {
		o.Observe(d.Seconds())
	}
	return d
}
