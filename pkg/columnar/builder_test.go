package columnar

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtstore/rtstore/pkg/row"
)

// one physical type per builder variant
var variantTypes = map[builderKind]arrow.DataType{
	boolBuilder:       arrow.FixedWidthTypes.Boolean,
	int8Builder:       arrow.PrimitiveTypes.Int8,
	uint8Builder:      arrow.PrimitiveTypes.Uint8,
	int16Builder:      arrow.PrimitiveTypes.Int16,
	uint16Builder:     arrow.PrimitiveTypes.Uint16,
	int32Builder:      arrow.PrimitiveTypes.Int32,
	uint32Builder:     arrow.PrimitiveTypes.Uint32,
	int64Builder:      arrow.PrimitiveTypes.Int64,
	uint64Builder:     arrow.PrimitiveTypes.Uint64,
	float32Builder:    arrow.PrimitiveTypes.Float32,
	float64Builder:    arrow.PrimitiveTypes.Float64,
	decimal128Builder: &arrow.Decimal128Type{Precision: 38, Scale: 38},
	date32Builder:     arrow.FixedWidthTypes.Date32,
	timestampBuilder:  &arrow.TimestampType{Unit: arrow.Millisecond},
	utf8Builder:       arrow.BinaryTypes.String,
}

func TestEveryCellKindHasBuilder(t *testing.T) {
	for k := row.Kind(0); k < row.NumKinds; k++ {
		b, ok := builderForCell(k)
		if k == row.KindNull {
			assert.False(t, ok, "null must not select a builder")
			continue
		}
		require.True(t, ok, "cell kind %s has no builder", k)
		assert.Equal(t, k, builderCellKinds[b])
	}
}

func TestBuilderVariantsRoundTrip(t *testing.T) {
	require.Len(t, variantTypes, int(numBuilderKinds))

	for kind := builderKind(0); kind < numBuilderKinds; kind++ {
		dt, ok := variantTypes[kind]
		require.True(t, ok, "no physical type for %s", kind)

		got, ok := builderForType(dt)
		require.True(t, ok, kind.String())
		assert.Equal(t, kind, got)

		back, ok := builderForCell(builderCellKinds[kind])
		require.True(t, ok)
		assert.Equal(t, kind, back)

		cellKind, ok := CellKindFor(dt)
		require.True(t, ok)
		assert.Equal(t, builderCellKinds[kind], cellKind)
		assert.NotEmpty(t, kind.String())
	}
}

func TestTimestampUnitsShareVariant(t *testing.T) {
	for _, unit := range []arrow.TimeUnit{arrow.Second, arrow.Millisecond, arrow.Microsecond, arrow.Nanosecond} {
		b, ok := builderForType(&arrow.TimestampType{Unit: unit})
		require.True(t, ok)
		assert.Equal(t, timestampBuilder, b)
	}
}

func TestUnsupportedTypesHaveNoBuilder(t *testing.T) {
	for _, dt := range []arrow.DataType{
		arrow.BinaryTypes.Binary,
		arrow.BinaryTypes.LargeString,
		arrow.FixedWidthTypes.Date64,
		arrow.FixedWidthTypes.Float16,
		arrow.ListOf(arrow.PrimitiveTypes.Int32),
	} {
		_, ok := builderForType(dt)
		assert.False(t, ok, dt.String())
		_, ok = CellKindFor(dt)
		assert.False(t, ok, dt.String())
	}
}
