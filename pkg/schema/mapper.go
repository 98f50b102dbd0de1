package schema

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rtstore/rtstore/pkg/errors"
)

// Decimal columns always use the widest decimal128 layout.
const (
	DecimalPrecision = 38
	DecimalScale     = 38
)

// ToArrowType returns the physical type of t, or false for an unknown code.
func ToArrowType(t LogicalType) (arrow.DataType, bool) {
	switch t {
	case Bool:
		return arrow.FixedWidthTypes.Boolean, true
	case TinyInt:
		return arrow.PrimitiveTypes.Int8, true
	case SmallInt:
		return arrow.PrimitiveTypes.Int16, true
	case Int:
		return arrow.PrimitiveTypes.Int32, true
	case BigInt:
		return arrow.PrimitiveTypes.Int64, true
	case Float:
		return arrow.PrimitiveTypes.Float32, true
	case Double:
		return arrow.PrimitiveTypes.Float64, true
	case Decimal:
		return &arrow.Decimal128Type{Precision: DecimalPrecision, Scale: DecimalScale}, true
	case Date:
		return arrow.FixedWidthTypes.Date32, true
	case TimestampSecond:
		return &arrow.TimestampType{Unit: arrow.Second}, true
	case TimestampMillis:
		return &arrow.TimestampType{Unit: arrow.Millisecond}, true
	case TimestampMicros:
		return &arrow.TimestampType{Unit: arrow.Microsecond}, true
	case Varchar:
		return arrow.BinaryTypes.String, true
	default:
		return nil, false
	}
}

// ToArrowSchema maps a logical schema onto an Arrow schema. Names,
// nullability and column order are carried over unchanged. An unknown
// logical type code fails the whole call.
func ToArrowSchema(desc *SchemaDesc) (*arrow.Schema, error) {
	if desc == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "schema description is nil")
	}

	fields := make([]arrow.Field, 0, len(desc.Columns))
	for _, column := range desc.Columns {
		dt, ok := ToArrowType(column.Type)
		if !ok {
			return nil, errors.NewSchemaConversion(column.Name, int32(column.Type))
		}
		fields = append(fields, arrow.Field{
			Name:     column.Name,
			Type:     dt,
			Nullable: column.Nullable,
		})
	}

	return arrow.NewSchema(fields, nil), nil
}
