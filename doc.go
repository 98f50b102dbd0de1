// Package rtstore is a table store engine for realtime ingesting and
// analytics.
//
// Memory nodes buffer incoming rows per table. A flush turns the buffered
// row batches into one Arrow record and writes it as a GZIP compressed
// Parquet file on local disk, S3 or GCS. The same conversion engine backs
// the introspection views (describe, show create table) and the listing of
// in-memory partitions handed to query planning.
//
// # Architecture
//
// The write path, bottom up:
//
//   - pkg/schema maps logical column types onto Arrow physical types.
//   - pkg/row holds tagged cells, rows and row batches.
//   - pkg/columnar converts row batches into Arrow records, one builder
//     per column, and builds the describe, DDL and partition views.
//   - pkg/formats writes records as Parquet or Arrow IPC files through a
//     pkg/filesystem backend.
//   - internal/memnode ties these together for one table.
//
// pkg/meta is the in-process metadata service: table registry, memory node
// registry and partition assignment, persisted as zstd compressed JSON
// snapshots.
//
// # Quick Start
//
// Describe a table and convert JSON rows into Parquet:
//
//	rtstore describe --table t1.yaml
//	rtstore convert --table t1.yaml --rows rows.json --out t1/0001.parquet
//
// A table description is YAML:
//
//	names: [db1, t1]
//	schema:
//	  version: 1
//	  columns:
//	    - name: id
//	      type: int
//	    - name: name
//	      type: varchar
//	      nullable: true
//
// Programmatically:
//
//	desc, _ := schema.LoadTableDesc("t1.yaml")
//	fs, _ := filesystem.New(ctx, cfg.Storage)
//	tbl, _ := memnode.NewTable(desc, fs)
//	_ = tbl.Append(&row.Batch{
//	    Rows:          []row.Row{{row.Int32(1), row.Varchar("a")}},
//	    SchemaVersion: 1,
//	})
//	n, err := tbl.Flush(ctx, "t1/0001.parquet")
//
// # Configuration
//
// rtstore reads one YAML file:
//
//	type Config struct {
//	    Name    string
//	    Logging logger.Config // zap level, encoding, outputs
//	    Storage StorageConfig // local, s3 or gcs
//	    Metrics MetricsConfig // prometheus namespace
//	    Tracing TracingConfig // opentelemetry stdout exporter
//	    Meta    MetaConfig    // snapshot path and compression
//	}
//
// Environment variables are supported with ${VAR_NAME} syntax, and a .env
// file next to the binary is loaded on start.
package rtstore
