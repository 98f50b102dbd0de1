package columnar

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/row"
)

func TestDecodeJSONRows(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "device_id", Type: arrow.BinaryTypes.String},
		{Name: "signal", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float64},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}},
		{Name: "u", Type: arrow.PrimitiveTypes.Uint64},
	}, nil)

	input := `[
		["2022-04-15 05:20:00", "d_1", 42, "1970-01-02", true, 0.5, "12.34", 18446744073709551615],
		[1650000000000, "d_2", null, 3, false, 1, 7, 0]
	]`

	rows, err := DecodeJSONRows(strings.NewReader(input), schema)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r0 := rows[0]
	assert.Equal(t, row.KindTimestamp, r0[0].Kind())
	assert.Equal(t, int64(1650000000000), r0[0].Timestamp())
	assert.Equal(t, "d_1", r0[1].Varchar())
	assert.Equal(t, int32(42), r0[2].Int32())
	assert.Equal(t, int32(1), r0[3].Date())
	assert.True(t, r0[4].Bool())
	assert.Equal(t, 0.5, r0[5].Float64())
	assert.Equal(t, "1234", r0[6].String())
	assert.Equal(t, uint64(18446744073709551615), r0[7].Uint64())

	r1 := rows[1]
	assert.Equal(t, int64(1650000000000), r1[0].Timestamp())
	assert.True(t, r1[2].IsNull())
	assert.Equal(t, int32(3), r1[3].Date())
	assert.Equal(t, "700", r1[6].String())

	enc, _, _ := newTestEncoder(t)
	rec, err := enc.Encode(schema, []*row.Batch{{Rows: rows}})
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, []int32{42, 0}, rec.Column(2).(*array.Int32).Int32Values())
	assert.True(t, rec.Column(2).IsNull(1))
}

func TestDecodeJSONRowsRFC3339Units(t *testing.T) {
	units := map[arrow.TimeUnit]int64{
		arrow.Second:      1650000000,
		arrow.Millisecond: 1650000000000,
		arrow.Microsecond: 1650000000000000,
	}
	for unit, want := range units {
		schema := oneColumn(&arrow.TimestampType{Unit: unit}, false)
		rows, err := DecodeJSONRows(strings.NewReader(`[["2022-04-15T05:20:00Z"]]`), schema)
		require.NoError(t, err)
		assert.Equal(t, want, rows[0][0].Timestamp(), unit.String())
	}
}

func TestDecodeJSONRowsZonesAndEpochDates(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Second}},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
	}, nil)

	rows, err := DecodeJSONRows(strings.NewReader(`[["2022-04-15T07:20:00+02:00", "1969-12-31"]]`), schema)
	require.NoError(t, err)
	assert.Equal(t, int64(1650000000), rows[0][0].Timestamp())
	assert.Equal(t, int32(-1), rows[0][1].Date())
}

func TestDecodeJSONRowsErrors(t *testing.T) {
	tests := []struct {
		name  string
		dt    arrow.DataType
		input string
	}{
		{"not an array", arrow.PrimitiveTypes.Int32, `{"a":1}`},
		{"width", arrow.PrimitiveTypes.Int32, `[[1, 2]]`},
		{"int8 overflow", arrow.PrimitiveTypes.Int8, `[[128]]`},
		{"negative unsigned", arrow.PrimitiveTypes.Uint16, `[[-1]]`},
		{"fraction in int", arrow.PrimitiveTypes.Int64, `[[1.5]]`},
		{"string for int", arrow.PrimitiveTypes.Int32, `[["1"]]`},
		{"number for string", arrow.BinaryTypes.String, `[[1]]`},
		{"bad date", arrow.FixedWidthTypes.Date32, `[["15/04/2022"]]`},
		{"bad timestamp", &arrow.TimestampType{Unit: arrow.Second}, `[["yesterday"]]`},
		{"sub-second for seconds", &arrow.TimestampType{Unit: arrow.Second}, `[["2022-04-15 05:20:00.5"]]`},
		{"bad bool", arrow.FixedWidthTypes.Boolean, `[["true"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSONRows(strings.NewReader(tt.input), oneColumn(tt.dt, false))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestDecodeJSONRowsUnsupportedColumnIsNull(t *testing.T) {
	rows, err := DecodeJSONRows(strings.NewReader(`[["abc"]]`), oneColumn(arrow.BinaryTypes.Binary, true))
	require.NoError(t, err)
	assert.True(t, rows[0][0].IsNull())
}
