package columnar

import (
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/json"
	"github.com/rtstore/rtstore/pkg/row"
)

const dateLayout = "2006-01-02"

// DecodeJSONRows reads a JSON array of rows, each row an array of values in
// schema order, and builds the matching cells. The cell kind for each
// column comes from the same table the encoder dispatches on, so decoded
// rows always encode unless a value is null in a non-nullable column.
func DecodeJSONRows(r io.Reader, schema *arrow.Schema) ([]row.Row, error) {
	dec := json.NewDecoder(r)

	var raw [][]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode JSON rows")
	}

	fields := schema.Fields()
	rows := make([]row.Row, 0, len(raw))
	for ri, values := range raw {
		if len(values) != len(fields) {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"row has %d values, schema has %d fields", len(values), len(fields)).
				WithDetail("row", ri)
		}
		cells := make(row.Row, len(fields))
		for ci, v := range values {
			cell, err := decodeCell(fields[ci], v)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid value").
					WithDetail("row", ri).
					WithDetail("column", fields[ci].Name)
			}
			cells[ci] = cell
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func decodeCell(field arrow.Field, v interface{}) (row.Cell, error) {
	if v == nil {
		return row.Null(), nil
	}
	kind, ok := CellKindFor(field.Type)
	if !ok {
		// the encoder skips this column
		return row.Null(), nil
	}

	switch kind {
	case row.KindBool:
		b, ok := v.(bool)
		if !ok {
			return row.Cell{}, errors.Newf(errors.ErrorTypeValidation, "expected bool, got %T", v)
		}
		return row.Bool(b), nil
	case row.KindInt8:
		n, err := parseInt(v, 8)
		return row.Int8(int8(n)), err
	case row.KindInt16:
		n, err := parseInt(v, 16)
		return row.Int16(int16(n)), err
	case row.KindInt32:
		n, err := parseInt(v, 32)
		return row.Int32(int32(n)), err
	case row.KindInt64:
		n, err := parseInt(v, 64)
		return row.Int64(n), err
	case row.KindUint8:
		n, err := parseUint(v, 8)
		return row.Uint8(uint8(n)), err
	case row.KindUint16:
		n, err := parseUint(v, 16)
		return row.Uint16(uint16(n)), err
	case row.KindUint32:
		n, err := parseUint(v, 32)
		return row.Uint32(uint32(n)), err
	case row.KindUint64:
		n, err := parseUint(v, 64)
		return row.Uint64(n), err
	case row.KindFloat32:
		f, err := parseFloat(v, 32)
		return row.Float32(float32(f)), err
	case row.KindFloat64:
		f, err := parseFloat(v, 64)
		return row.Float64(f), err
	case row.KindDecimal:
		dt := field.Type.(*arrow.Decimal128Type)
		s, err := numberOrString(v)
		if err != nil {
			return row.Cell{}, err
		}
		n, err := decimal128.FromString(s, dt.Precision, dt.Scale)
		if err != nil {
			return row.Cell{}, err
		}
		return row.Decimal(n), nil
	case row.KindDate:
		days, err := parseDate(v)
		return row.Date(days), err
	case row.KindTimestamp:
		ts, err := parseTimestamp(v, field.Type.(*arrow.TimestampType).Unit)
		return row.Timestamp(ts), err
	case row.KindVarchar:
		s, ok := v.(string)
		if !ok {
			return row.Cell{}, errors.Newf(errors.ErrorTypeValidation, "expected string, got %T", v)
		}
		return row.Varchar(s), nil
	default:
		return row.Cell{}, errors.Newf(errors.ErrorTypeInternal, "no decoder for cell kind %s", kind)
	}
}

func number(v interface{}) (json.Number, error) {
	n, ok := v.(json.Number)
	if !ok {
		return "", errors.Newf(errors.ErrorTypeValidation, "expected number, got %T", v)
	}
	return n, nil
}

func numberOrString(v interface{}) (string, error) {
	switch x := v.(type) {
	case json.Number:
		return x.String(), nil
	case string:
		return x, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "expected number or string, got %T", v)
	}
}

func parseInt(v interface{}, bits int) (int64, error) {
	n, err := number(v)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(n.String(), 10, bits)
}

func parseUint(v interface{}, bits int) (uint64, error) {
	n, err := number(v)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(n.String(), 10, bits)
}

func parseFloat(v interface{}, bits int) (float64, error) {
	n, err := number(v)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(n.String(), bits)
}

func parseDate(v interface{}) (int32, error) {
	if s, ok := v.(string); ok {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return 0, err
		}
		return int32(arrow.Date32FromTime(t)), nil
	}
	n, err := parseInt(v, 32)
	return int32(n), err
}

// parseTimestamp accepts epoch integers in the column unit or strings in the
// forms arrow.TimestampFromString understands, UTC unless a zone is given.
func parseTimestamp(v interface{}, unit arrow.TimeUnit) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return parseInt(v, 64)
	}
	ts, err := arrow.TimestampFromString(s, unit)
	if err != nil {
		return 0, err
	}
	return int64(ts), nil
}
