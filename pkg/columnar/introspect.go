package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/row"
	stringpool "github.com/rtstore/rtstore/pkg/strings"
)

var (
	describeSchema = arrow.NewSchema([]arrow.Field{
		{Name: "Field", Type: arrow.BinaryTypes.String},
		{Name: "Type", Type: arrow.BinaryTypes.String},
		{Name: "Null", Type: arrow.BinaryTypes.String},
		{Name: "Key", Type: arrow.BinaryTypes.String},
		{Name: "Default", Type: arrow.BinaryTypes.String},
		{Name: "Extra", Type: arrow.BinaryTypes.String},
	}, nil)

	ddlSchema = arrow.NewSchema([]arrow.Field{
		{Name: "Table", Type: arrow.BinaryTypes.String},
		{Name: "Create Table", Type: arrow.BinaryTypes.String},
	}, nil)
)

// DescribeSchema is the schema of records built by SchemaToRecord.
func DescribeSchema() *arrow.Schema { return describeSchema }

// DDLSchema is the schema of records built by SchemaToDDLRecord.
func DDLSchema() *arrow.Schema { return ddlSchema }

// SQLTypeName returns the SQL rendering of a physical type.
func SQLTypeName(dt arrow.DataType) (string, bool) {
	switch dt.ID() {
	case arrow.STRING:
		return "varchar(255)", true
	case arrow.INT8:
		return "tinyint", true
	case arrow.INT16:
		return "smallint", true
	case arrow.INT32:
		return "int", true
	case arrow.INT64:
		return "bigint", true
	case arrow.FLOAT32:
		return "float", true
	case arrow.FLOAT64:
		return "double", true
	case arrow.DATE32:
		return "date", true
	case arrow.TIMESTAMP:
		return "timestamp", true
	default:
		return "", false
	}
}

// SchemaToRecord describes schema as a table with one row per field:
// {Field, Type, Null, Key, Default, Extra}.
func SchemaToRecord(schema *arrow.Schema) (arrow.Record, error) {
	return NewEncoder().SchemaToRecord(schema)
}

// SchemaToDDLRecord renders schema as a single row {Table, Create Table}.
func SchemaToDDLRecord(name string, schema *arrow.Schema) (arrow.Record, error) {
	return NewEncoder().SchemaToDDLRecord(name, schema)
}

// SchemaToRecord builds the describe view of schema by feeding one
// synthetic row per field through the encoder.
func (e *Encoder) SchemaToRecord(schema *arrow.Schema) (arrow.Record, error) {
	rows := make([]row.Row, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		typeName, ok := SQLTypeName(f.Type)
		if !ok {
			typeName = "unknown"
		}
		rows = append(rows, row.Row{
			row.Varchar(f.Name),
			row.Varchar(typeName),
			row.Varchar("YES"),
			row.Varchar(""),
			row.Varchar(""),
			row.Varchar(""),
		})
	}
	return e.Encode(describeSchema, []*row.Batch{{Rows: rows}})
}

// SchemaToDDLRecord builds a create table statement for schema. Fields
// without a SQL rendering are left out of the statement and logged, so the
// text can describe fewer columns than the table has.
func (e *Encoder) SchemaToDDLRecord(name string, schema *arrow.Schema) (arrow.Record, error) {
	ddl := stringpool.BuildString(stringpool.Small, func(sb *stringpool.Builder) {
		sb.WriteString("create table `")
		sb.WriteString(name)
		sb.WriteString("` (")
		written := 0
		for _, f := range schema.Fields() {
			typeName, ok := SQLTypeName(f.Type)
			if !ok {
				e.logger.Warn("field type has no sql rendering, omitted from ddl",
					zap.String("table", name),
					zap.String("field", f.Name),
					zap.Stringer("type", f.Type))
				e.metrics.DDLSkippedFields.WithLabelValues(f.Type.Name()).Inc()
				continue
			}
			if written > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.Name)
			sb.WriteByte(' ')
			sb.WriteString(typeName)
			written++
		}
		sb.WriteByte(')')
	})

	batch := &row.Batch{Rows: []row.Row{{row.Varchar(name), row.Varchar(ddl)}}}
	return e.Encode(ddlSchema, []*row.Batch{batch})
}
