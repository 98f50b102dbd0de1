package memnode

import (
	"context"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
	"github.com/rtstore/rtstore/pkg/formats"
	"github.com/rtstore/rtstore/pkg/metrics"
	"github.com/rtstore/rtstore/pkg/row"
	"github.com/rtstore/rtstore/pkg/schema"
)

func testDesc() *schema.TableDesc {
	return &schema.TableDesc{
		Names: []string{"db1", "t1"},
		Schema: &schema.SchemaDesc{
			Columns: []schema.ColumnDesc{
				{Name: "id", Type: schema.Int},
				{Name: "name", Type: schema.Varchar, Nullable: true},
			},
			Version: 2,
		},
	}
}

func newTestTable(t *testing.T) (*Table, filesystem.FileSystem, *metrics.Collector) {
	t.Helper()
	fs, err := filesystem.NewLocal(t.TempDir())
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry(), "test")
	tbl, err := NewTable(testDesc(), fs, WithLogger(zap.NewNop()), WithMetrics(m))
	require.NoError(t, err)
	return tbl, fs, m
}

func batch(version int32, ids ...int32) *row.Batch {
	b := &row.Batch{SchemaVersion: version}
	for _, id := range ids {
		b.Rows = append(b.Rows, row.Row{row.Int32(id), row.Varchar("n")})
	}
	return b
}

func TestNewTable(t *testing.T) {
	tbl, _, _ := newTestTable(t)
	assert.Equal(t, "db1.t1", tbl.ID())
	assert.Equal(t, 2, tbl.Schema().NumFields())
	assert.Equal(t, arrow.PrimitiveTypes.Int32, tbl.Schema().Field(0).Type)

	bad := testDesc()
	bad.Schema.Columns[0].Type = schema.LogicalType(42)
	_, err := NewTable(bad, nil, WithLogger(zap.NewNop()))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaConversion))

	_, err = NewTable(nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestAppendValidates(t *testing.T) {
	tbl, _, m := newTestTable(t)

	require.NoError(t, tbl.Append(batch(2, 1, 2)))
	require.NoError(t, tbl.Append(nil))
	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BufferedRows.WithLabelValues("db1.t1")))

	err := tbl.Append(batch(1, 3))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = tbl.Append(&row.Batch{SchemaVersion: 2, Rows: []row.Row{{row.Int32(1)}}})
	require.Error(t, err)
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	r, _ := e.Detail("row")
	assert.Equal(t, 0, r)

	assert.Equal(t, 2, tbl.Rows())
}

func TestSnapshotKeepsRows(t *testing.T) {
	tbl, _, _ := newTestTable(t)
	require.NoError(t, tbl.Append(batch(2, 12)))
	require.NoError(t, tbl.Append(batch(2, 11)))

	rec, err := tbl.Snapshot()
	require.NoError(t, err)
	defer rec.Release()

	ids := rec.Column(0).(*array.Int32)
	assert.Equal(t, []int32{12, 11}, ids.Int32Values())
	assert.Equal(t, 2, tbl.Rows())
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	tbl, fs, m := newTestTable(t)
	require.NoError(t, tbl.Append(batch(2, 12, 11)))
	require.NoError(t, tbl.Append(batch(2, 10)))

	n, err := tbl.Flush(ctx, "db1.t1/0001.parquet")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, tbl.Rows())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BufferedRows.WithLabelValues("db1.t1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsConverted.WithLabelValues("db1.t1")))

	recs, err := formats.ReadRecordBatches(ctx, fs, "db1.t1/0001.parquet", formats.WithLogger(zap.NewNop()), formats.WithMetrics(m))
	require.NoError(t, err)
	var ids []int32
	for _, r := range recs {
		ids = append(ids, r.Column(0).(*array.Int32).Int32Values()...)
		r.Release()
	}
	assert.Equal(t, []int32{12, 11, 10}, ids)
}

func TestFlushEmpty(t *testing.T) {
	ctx := context.Background()
	tbl, fs, _ := newTestTable(t)

	n, err := tbl.Flush(ctx, "empty.parquet")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = fs.Open(ctx, "empty.parquet")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestFlushFailureRequeues(t *testing.T) {
	ctx := context.Background()
	tbl, _, _ := newTestTable(t)
	require.NoError(t, tbl.Append(batch(2, 1)))

	_, err := tbl.Flush(ctx, "../escape.parquet")
	assert.True(t, errors.IsType(err, errors.ErrorTypePersistence))
	assert.Equal(t, 1, tbl.Rows())

	require.NoError(t, tbl.Append(batch(2, 2)))
	rec, err := tbl.Snapshot()
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, []int32{1, 2}, rec.Column(0).(*array.Int32).Int32Values())
}

func TestFlushConversionFailureRequeues(t *testing.T) {
	ctx := context.Background()
	tbl, _, _ := newTestTable(t)
	bad := &row.Batch{SchemaVersion: 2, Rows: []row.Row{{row.Varchar("x"), row.Varchar("y")}}}
	require.NoError(t, tbl.Append(bad))

	_, err := tbl.Flush(ctx, "bad.parquet")
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
	assert.Equal(t, 1, tbl.Rows())
}

func TestSpill(t *testing.T) {
	ctx := context.Background()
	tbl, fs, m := newTestTable(t)
	require.NoError(t, tbl.Append(batch(2, 5, 6)))

	n, err := tbl.Spill(ctx, "spill/0001.arrow")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := formats.ReadIPC(ctx, fs, "spill/0001.arrow", formats.WithLogger(zap.NewNop()), formats.WithMetrics(m))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	defer recs[0].Release()
	assert.Equal(t, []int32{5, 6}, recs[0].Column(0).(*array.Int32).Int32Values())
}

func TestConcurrentAppendAndFlush(t *testing.T) {
	ctx := context.Background()
	tbl, _, _ := newTestTable(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, tbl.Append(batch(2, int32(w*100+i))))
			}
		}(w)
	}

	total := 0
	var mu sync.Mutex
	var fwg sync.WaitGroup
	for f := 0; f < 4; f++ {
		fwg.Add(1)
		go func(f int) {
			defer fwg.Done()
			n, err := tbl.Flush(ctx, "flush-"+string(rune('a'+f))+".parquet")
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}(f)
	}
	wg.Wait()
	fwg.Wait()

	n, err := tbl.Flush(ctx, "final.parquet")
	require.NoError(t, err)
	assert.Equal(t, 400, total+n)
}

func TestPartitions(t *testing.T) {
	tbl, _, _ := newTestTable(t)
	require.NoError(t, tbl.Append(batch(2, 12, 11)))

	files, err := tbl.Partitions()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Empty(t, f.Path)
		assert.Nil(t, f.Range)
		assert.Greater(t, f.Size, int64(0))
		assert.Len(t, f.PartitionValues, 2)
	}
	assert.Equal(t, int32(12), files[0].PartitionValues[0].(*scalar.Int32).Value)
	assert.Equal(t, int32(11), files[1].PartitionValues[0].(*scalar.Int32).Value)
}

func TestDescribeAndShowCreate(t *testing.T) {
	tbl, _, _ := newTestTable(t)

	desc, err := tbl.Describe()
	require.NoError(t, err)
	defer desc.Release()
	require.Equal(t, int64(2), desc.NumRows())
	assert.Equal(t, "id", desc.Column(0).(*array.String).Value(0))
	assert.Equal(t, "int", desc.Column(1).(*array.String).Value(0))
	assert.Equal(t, "varchar(255)", desc.Column(1).(*array.String).Value(1))

	ddl, err := tbl.ShowCreate()
	require.NoError(t, err)
	defer ddl.Release()
	assert.Equal(t, "t1", ddl.Column(0).(*array.String).Value(0))
	assert.Equal(t, "create table `t1` (id int,name varchar(255))", ddl.Column(1).(*array.String).Value(0))
}
