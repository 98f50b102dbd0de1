package schema

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtstore/rtstore/pkg/errors"
)

func singleColumn(t LogicalType, nullable bool) *SchemaDesc {
	return &SchemaDesc{
		Columns: []ColumnDesc{{Name: "col1", Type: t, Nullable: nullable}},
		Version: 1,
	}
}

func TestToArrowSchemaPerType(t *testing.T) {
	tests := []struct {
		logical  LogicalType
		physical arrow.DataType
	}{
		{Bool, arrow.FixedWidthTypes.Boolean},
		{TinyInt, arrow.PrimitiveTypes.Int8},
		{SmallInt, arrow.PrimitiveTypes.Int16},
		{Int, arrow.PrimitiveTypes.Int32},
		{BigInt, arrow.PrimitiveTypes.Int64},
		{Float, arrow.PrimitiveTypes.Float32},
		{Double, arrow.PrimitiveTypes.Float64},
		{Decimal, &arrow.Decimal128Type{Precision: 38, Scale: 38}},
		{Date, arrow.FixedWidthTypes.Date32},
		{TimestampSecond, &arrow.TimestampType{Unit: arrow.Second}},
		{TimestampMillis, &arrow.TimestampType{Unit: arrow.Millisecond}},
		{TimestampMicros, &arrow.TimestampType{Unit: arrow.Microsecond}},
		{Varchar, arrow.BinaryTypes.String},
	}
	require.Len(t, tests, len(LogicalTypes()))

	for _, tt := range tests {
		for _, nullable := range []bool{true, false} {
			t.Run(tt.logical.String(), func(t *testing.T) {
				s, err := ToArrowSchema(singleColumn(tt.logical, nullable))
				require.NoError(t, err)
				require.Equal(t, 1, s.NumFields())

				f := s.Field(0)
				assert.Equal(t, "col1", f.Name)
				assert.Equal(t, nullable, f.Nullable)
				assert.True(t, arrow.TypeEqual(tt.physical, f.Type), "got %s", f.Type)
			})
		}
	}
}

func TestToArrowSchemaComplexTypes(t *testing.T) {
	desc := &SchemaDesc{
		Columns: []ColumnDesc{
			{Name: "col1", Type: Decimal, Nullable: true},
			{Name: "col2", Type: TimestampSecond, Nullable: true},
			{Name: "col3", Type: TimestampMillis, Nullable: true},
			{Name: "col4", Type: TimestampMicros, Nullable: true},
		},
		Version: 1,
	}

	s, err := ToArrowSchema(desc)
	require.NoError(t, err)
	require.Equal(t, 4, s.NumFields())

	dec, ok := s.Field(0).Type.(*arrow.Decimal128Type)
	require.True(t, ok)
	assert.Equal(t, int32(DecimalPrecision), dec.Precision)
	assert.Equal(t, int32(DecimalScale), dec.Scale)

	units := []arrow.TimeUnit{arrow.Second, arrow.Millisecond, arrow.Microsecond}
	for i, unit := range units {
		ts, ok := s.Field(i + 1).Type.(*arrow.TimestampType)
		require.True(t, ok)
		assert.Equal(t, unit, ts.Unit)
		assert.Empty(t, ts.TimeZone)
	}
}

func TestToArrowSchemaUnknownCode(t *testing.T) {
	desc := &SchemaDesc{
		Columns: []ColumnDesc{
			{Name: "ok1", Type: Int},
			{Name: "bad", Type: LogicalType(99)},
			{Name: "ok2", Type: Varchar},
		},
	}

	s, err := ToArrowSchema(desc)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaConversion))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	code, _ := e.Detail("type_code")
	assert.Equal(t, int32(99), code)
	column, _ := e.Detail("column")
	assert.Equal(t, "bad", column)
	assert.Contains(t, err.Error(), `code 99 for column "bad"`)
}

func TestToArrowSchemaNegativeCode(t *testing.T) {
	_, err := ToArrowSchema(singleColumn(LogicalType(-1), true))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaConversion))
}

func TestToArrowSchemaPreservesOrder(t *testing.T) {
	desc := &SchemaDesc{
		Columns: []ColumnDesc{
			{Name: "z", Type: Varchar},
			{Name: "a", Type: BigInt, Nullable: true},
			{Name: "m", Type: Date},
		},
	}
	s, err := ToArrowSchema(desc)
	require.NoError(t, err)

	var names []string
	for _, f := range s.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}

func TestToArrowSchemaDeterministic(t *testing.T) {
	desc := &SchemaDesc{
		Columns: []ColumnDesc{
			{Name: "ts", Type: TimestampMillis},
			{Name: "device_id", Type: Varchar},
			{Name: "signal", Type: Int, Nullable: true},
			{Name: "amount", Type: Decimal, Nullable: true},
		},
		Version: 3,
	}

	first, err := ToArrowSchema(desc)
	require.NoError(t, err)
	second, err := ToArrowSchema(desc)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.String(), second.String())
}

func TestToArrowSchemaNil(t *testing.T) {
	_, err := ToArrowSchema(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
