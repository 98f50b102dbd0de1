package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/row"
)

// builderKind is the closed set of column builders the encoder knows.
type builderKind uint8

const (
	boolBuilder builderKind = iota
	int8Builder
	uint8Builder
	int16Builder
	uint16Builder
	int32Builder
	uint32Builder
	int64Builder
	uint64Builder
	float32Builder
	float64Builder
	decimal128Builder
	date32Builder
	timestampBuilder
	utf8Builder

	numBuilderKinds
)

var builderKindNames = [...]string{
	boolBuilder:       "bool",
	int8Builder:       "int8",
	uint8Builder:      "uint8",
	int16Builder:      "int16",
	uint16Builder:     "uint16",
	int32Builder:      "int32",
	uint32Builder:     "uint32",
	int64Builder:      "int64",
	uint64Builder:     "uint64",
	float32Builder:    "float32",
	float64Builder:    "float64",
	decimal128Builder: "decimal128",
	date32Builder:     "date32",
	timestampBuilder:  "timestamp",
	utf8Builder:       "utf8",
}

func _() {
	// An "invalid array index" compiler error means a builder kind was added
	// without a name.
	var x [1]struct{}
	_ = x[int(numBuilderKinds)-len(builderKindNames)]
}

func (k builderKind) String() string { return builderKindNames[k] }

// The two dispatch tables below must change together: builderForType picks
// the variant for a physical type and builderCellKinds names the one cell
// kind each variant accepts.

// builderForType returns the builder variant for a physical type. Types
// without a variant report false and are skipped by the encoder.
func builderForType(dt arrow.DataType) (builderKind, bool) {
	switch dt.ID() {
	case arrow.BOOL:
		return boolBuilder, true
	case arrow.INT8:
		return int8Builder, true
	case arrow.UINT8:
		return uint8Builder, true
	case arrow.INT16:
		return int16Builder, true
	case arrow.UINT16:
		return uint16Builder, true
	case arrow.INT32:
		return int32Builder, true
	case arrow.UINT32:
		return uint32Builder, true
	case arrow.INT64:
		return int64Builder, true
	case arrow.UINT64:
		return uint64Builder, true
	case arrow.FLOAT32:
		return float32Builder, true
	case arrow.FLOAT64:
		return float64Builder, true
	case arrow.DECIMAL128:
		return decimal128Builder, true
	case arrow.DATE32:
		return date32Builder, true
	case arrow.TIMESTAMP:
		return timestampBuilder, true
	case arrow.STRING:
		return utf8Builder, true
	default:
		return 0, false
	}
}

var builderCellKinds = [numBuilderKinds]row.Kind{
	boolBuilder:       row.KindBool,
	int8Builder:       row.KindInt8,
	uint8Builder:      row.KindUint8,
	int16Builder:      row.KindInt16,
	uint16Builder:     row.KindUint16,
	int32Builder:      row.KindInt32,
	uint32Builder:     row.KindUint32,
	int64Builder:      row.KindInt64,
	uint64Builder:     row.KindUint64,
	float32Builder:    row.KindFloat32,
	float64Builder:    row.KindFloat64,
	decimal128Builder: row.KindDecimal,
	date32Builder:     row.KindDate,
	timestampBuilder:  row.KindTimestamp,
	utf8Builder:       row.KindVarchar,
}

// builderForCell returns the builder variant that accepts cells of kind k.
func builderForCell(k row.Kind) (builderKind, bool) {
	for b, ck := range builderCellKinds {
		if ck == k {
			return builderKind(b), true
		}
	}
	return 0, false
}

// CellKindFor returns the cell kind a column of type dt accepts, or false
// when the encoder skips that type.
func CellKindFor(dt arrow.DataType) (row.Kind, bool) {
	b, ok := builderForType(dt)
	if !ok {
		return row.KindNull, false
	}
	return builderCellKinds[b], true
}

// columnBuilder accumulates the values of one column.
type columnBuilder struct {
	kind  builderKind
	field arrow.Field
	b     array.Builder
}

func newColumnBuilder(mem memory.Allocator, field arrow.Field, kind builderKind, capacity int) *columnBuilder {
	var b array.Builder
	switch kind {
	case boolBuilder:
		b = array.NewBooleanBuilder(mem)
	case int8Builder:
		b = array.NewInt8Builder(mem)
	case uint8Builder:
		b = array.NewUint8Builder(mem)
	case int16Builder:
		b = array.NewInt16Builder(mem)
	case uint16Builder:
		b = array.NewUint16Builder(mem)
	case int32Builder:
		b = array.NewInt32Builder(mem)
	case uint32Builder:
		b = array.NewUint32Builder(mem)
	case int64Builder:
		b = array.NewInt64Builder(mem)
	case uint64Builder:
		b = array.NewUint64Builder(mem)
	case float32Builder:
		b = array.NewFloat32Builder(mem)
	case float64Builder:
		b = array.NewFloat64Builder(mem)
	case decimal128Builder:
		b = array.NewDecimal128Builder(mem, field.Type.(*arrow.Decimal128Type))
	case date32Builder:
		b = array.NewDate32Builder(mem)
	case timestampBuilder:
		b = array.NewTimestampBuilder(mem, field.Type.(*arrow.TimestampType))
	case utf8Builder:
		b = array.NewStringBuilder(mem)
	}
	if capacity > 0 {
		b.Reserve(capacity)
	}
	return &columnBuilder{kind: kind, field: field, b: b}
}

// append adds one cell. A cell whose kind differs from the builder's is a
// type mismatch; so is a null in a non-nullable column.
func (cb *columnBuilder) append(c row.Cell) (err error) {
	if c.IsNull() {
		if !cb.field.Nullable {
			return errors.NewTypeMismatch(cb.kind.String(), cb.field.Name, c.Kind().String())
		}
		cb.b.AppendNull()
		return nil
	}
	if c.Kind() != builderCellKinds[cb.kind] {
		return errors.NewTypeMismatch(cb.kind.String(), cb.field.Name, c.Kind().String())
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = errors.WrapEncoding(cause, "append to column builder failed").
				WithDetail("builder", cb.kind.String()).
				WithDetail("column", cb.field.Name)
		}
	}()

	switch b := cb.b.(type) {
	case *array.BooleanBuilder:
		b.Append(c.Bool())
	case *array.Int8Builder:
		b.Append(c.Int8())
	case *array.Uint8Builder:
		b.Append(c.Uint8())
	case *array.Int16Builder:
		b.Append(c.Int16())
	case *array.Uint16Builder:
		b.Append(c.Uint16())
	case *array.Int32Builder:
		b.Append(c.Int32())
	case *array.Uint32Builder:
		b.Append(c.Uint32())
	case *array.Int64Builder:
		b.Append(c.Int64())
	case *array.Uint64Builder:
		b.Append(c.Uint64())
	case *array.Float32Builder:
		b.Append(c.Float32())
	case *array.Float64Builder:
		b.Append(c.Float64())
	case *array.Decimal128Builder:
		dt := cb.field.Type.(*arrow.Decimal128Type)
		if !c.Decimal().FitsInPrecision(dt.Precision) {
			return errors.Newf(errors.ErrorTypeEncoding, "decimal value does not fit precision %d", dt.Precision).
				WithDetail("column", cb.field.Name)
		}
		b.Append(c.Decimal())
	case *array.Date32Builder:
		b.Append(arrow.Date32(c.Date()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(c.Timestamp()))
	case *array.StringBuilder:
		b.Append(c.Varchar())
	default:
		return errors.Newf(errors.ErrorTypeEncoding, "unexpected builder %T", cb.b).
			WithDetail("column", cb.field.Name)
	}
	return nil
}

func (cb *columnBuilder) finish() arrow.Array {
	return cb.b.NewArray()
}

func (cb *columnBuilder) release() {
	cb.b.Release()
}
