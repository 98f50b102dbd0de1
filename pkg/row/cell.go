// Package row defines the row oriented write format: tagged cells, rows,
// row batches and the append-only list buffered between flushes.
package row

import (
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// Kind is the tag carried by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindDate
	KindTimestamp
	KindVarchar

	NumKinds
)

var kindNames = [NumKinds]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt8:      "int8",
	KindUint8:     "uint8",
	KindInt16:     "int16",
	KindUint16:    "uint16",
	KindInt32:     "int32",
	KindUint32:    "uint32",
	KindInt64:     "int64",
	KindUint64:    "uint64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindVarchar:   "varchar",
}

// String returns the lower-case name of k.
func (k Kind) String() string {
	if k >= NumKinds {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Cell is an immutable tagged value. The zero Cell is null.
type Cell struct {
	kind Kind
	bits uint64
	str  string
	dec  decimal128.Num
}

// Null returns a null cell.
func Null() Cell { return Cell{} }

// Bool returns a boolean cell.
func Bool(v bool) Cell {
	var b uint64
	if v {
		b = 1
	}
	return Cell{kind: KindBool, bits: b}
}

// Int8 returns a signed 8-bit cell.
func Int8(v int8) Cell { return Cell{kind: KindInt8, bits: uint64(v)} }

// Uint8 returns an unsigned 8-bit cell.
func Uint8(v uint8) Cell { return Cell{kind: KindUint8, bits: uint64(v)} }

// Int16 returns a signed 16-bit cell.
func Int16(v int16) Cell { return Cell{kind: KindInt16, bits: uint64(v)} }

// Uint16 returns an unsigned 16-bit cell.
func Uint16(v uint16) Cell { return Cell{kind: KindUint16, bits: uint64(v)} }

// Int32 returns a signed 32-bit cell.
func Int32(v int32) Cell { return Cell{kind: KindInt32, bits: uint64(v)} }

// Uint32 returns an unsigned 32-bit cell.
func Uint32(v uint32) Cell { return Cell{kind: KindUint32, bits: uint64(v)} }

// Int64 returns a signed 64-bit cell.
func Int64(v int64) Cell { return Cell{kind: KindInt64, bits: uint64(v)} }

// Uint64 returns an unsigned 64-bit cell.
func Uint64(v uint64) Cell { return Cell{kind: KindUint64, bits: v} }

// Float32 returns a single precision cell.
func Float32(v float32) Cell { return Cell{kind: KindFloat32, bits: uint64(math.Float32bits(v))} }

// Float64 returns a double precision cell.
func Float64(v float64) Cell { return Cell{kind: KindFloat64, bits: math.Float64bits(v)} }

// Varchar returns a UTF-8 string cell.
func Varchar(v string) Cell { return Cell{kind: KindVarchar, str: v} }

// Decimal holds a decimal128 value already scaled to its column.
func Decimal(v decimal128.Num) Cell { return Cell{kind: KindDecimal, dec: v} }

// Date holds days since the unix epoch.
func Date(days int32) Cell { return Cell{kind: KindDate, bits: uint64(days)} }

// Timestamp holds a count since the unix epoch in the unit of its column.
func Timestamp(v int64) Cell { return Cell{kind: KindTimestamp, bits: uint64(v)} }

// Kind returns the tag of c.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether c is null.
func (c Cell) IsNull() bool { return c.kind == KindNull }

// The accessors below return the payload reinterpreted for the named kind.
// Callers check Kind first.

// Bool returns the payload of a KindBool cell.
func (c Cell) Bool() bool { return c.bits != 0 }

// Int8 returns the payload of a KindInt8 cell.
func (c Cell) Int8() int8 { return int8(c.bits) }

// Uint8 returns the payload of a KindUint8 cell.
func (c Cell) Uint8() uint8 { return uint8(c.bits) }

// Int16 returns the payload of a KindInt16 cell.
func (c Cell) Int16() int16 { return int16(c.bits) }

// Uint16 returns the payload of a KindUint16 cell.
func (c Cell) Uint16() uint16 { return uint16(c.bits) }

// Int32 returns the payload of a KindInt32 cell.
func (c Cell) Int32() int32 { return int32(c.bits) }

// Uint32 returns the payload of a KindUint32 cell.
func (c Cell) Uint32() uint32 { return uint32(c.bits) }

// Int64 returns the payload of a KindInt64 cell.
func (c Cell) Int64() int64 { return int64(c.bits) }

// Uint64 returns the payload of a KindUint64 cell.
func (c Cell) Uint64() uint64 { return c.bits }

// Float32 returns the payload of a KindFloat32 cell.
func (c Cell) Float32() float32 { return math.Float32frombits(uint32(c.bits)) }

// Float64 returns the payload of a KindFloat64 cell.
func (c Cell) Float64() float64 { return math.Float64frombits(c.bits) }

// Decimal returns the payload of a KindDecimal cell.
func (c Cell) Decimal() decimal128.Num { return c.dec }

// Date returns the days since the epoch held by a KindDate cell.
func (c Cell) Date() int32 { return int32(c.bits) }

// Timestamp returns the raw count held by a KindTimestamp cell.
func (c Cell) Timestamp() int64 { return int64(c.bits) }

// Varchar returns the payload of a KindVarchar cell.
func (c Cell) Varchar() string { return c.str }

// String renders the payload for logs and error details.
func (c Cell) String() string {
	switch c.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(c.Bool())
	case KindInt8, KindInt16, KindInt32, KindInt64, KindDate, KindTimestamp:
		return strconv.FormatInt(c.signed(), 10)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(c.bits, 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(c.Float32()), 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(c.Float64(), 'g', -1, 64)
	case KindDecimal:
		return c.dec.BigInt().String()
	case KindVarchar:
		return c.str
	default:
		return c.kind.String()
	}
}

func (c Cell) signed() int64 {
	switch c.kind {
	case KindInt8:
		return int64(c.Int8())
	case KindInt16:
		return int64(c.Int16())
	case KindInt32, KindDate:
		return int64(c.Int32())
	default:
		return c.Int64()
	}
}
