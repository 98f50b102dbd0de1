package schema

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rtstore/rtstore/pkg/errors"
)

// LogicalType is the table definition level type of a column. The numeric
// values are the wire codes carried by table descriptors.
type LogicalType int32

const (
	Bool LogicalType = iota
	TinyInt
	SmallInt
	Int
	BigInt
	Float
	Double
	Decimal
	Date
	TimestampSecond
	TimestampMillis
	TimestampMicros
	Varchar

	numLogicalTypes
)

var logicalTypeNames = [numLogicalTypes]string{
	Bool:            "bool",
	TinyInt:         "tinyint",
	SmallInt:        "smallint",
	Int:             "int",
	BigInt:          "bigint",
	Float:           "float",
	Double:          "double",
	Decimal:         "decimal",
	Date:            "date",
	TimestampSecond: "timestamp_second",
	TimestampMillis: "timestamp_millis",
	TimestampMicros: "timestamp_micros",
	Varchar:         "varchar",
}

// LogicalTypes returns every known logical type in code order.
func LogicalTypes() []LogicalType {
	types := make([]LogicalType, 0, numLogicalTypes)
	for t := LogicalType(0); t < numLogicalTypes; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is a known code.
func (t LogicalType) Valid() bool {
	return t >= 0 && t < numLogicalTypes
}

// String returns the type name, or logical_type(code) for unknown codes.
func (t LogicalType) String() string {
	if !t.Valid() {
		return "logical_type(" + strconv.Itoa(int(t)) + ")"
	}
	return logicalTypeNames[t]
}

// ParseLogicalType accepts a type name ("bigint") or a raw code ("4"). Raw
// codes are returned unchecked so the mapper can report them.
func ParseLogicalType(s string) (LogicalType, error) {
	for i, name := range logicalTypeNames {
		if name == s {
			return LogicalType(i), nil
		}
	}
	code, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Newf(errors.ErrorTypeValidation, "unknown logical type %q", s)
	}
	return LogicalType(code), nil
}

// MarshalYAML writes known types by name and unknown ones by code.
func (t LogicalType) MarshalYAML() (interface{}, error) {
	if !t.Valid() {
		return int32(t), nil
	}
	return t.String(), nil
}

// UnmarshalYAML accepts either a type name or an integer code.
func (t *LogicalType) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Newf(errors.ErrorTypeValidation, "line %d: logical type must be a scalar", value.Line)
	}
	parsed, err := ParseLogicalType(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
