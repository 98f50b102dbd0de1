package errors

import stringpool "github.com/rtstore/rtstore/pkg/strings"

// Constructors for the error kinds raised by the conversion engine. Each one
// records the values a caller needs to act on the failure as details.

// NewSchemaConversion reports a logical type code the schema mapper does not know.
func NewSchemaConversion(column string, code int32) *Error {
	return &Error{
		Type:    ErrorTypeSchemaConversion,
		Message: stringpool.Sprintf("unrecognized logical type code %d for column %q", code, column),
		Details: map[string]interface{}{"column": column, "type_code": code},
		Stack:   captureStack(2),
	}
}

// NewTypeMismatch reports a cell whose tag disagrees with the builder chosen
// for its column.
func NewTypeMismatch(expected, column, actual string) *Error {
	return &Error{
		Type:    ErrorTypeTypeMismatch,
		Message: stringpool.Sprintf("expected %s for column %q, got %s", expected, column, actual),
		Details: map[string]interface{}{"expected": expected, "column": column, "actual": actual},
		Stack:   captureStack(2),
	}
}

// WrapEncoding reports a failure inside the columnar array representation.
func WrapEncoding(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, ErrorTypeEncoding, message)
}

// WrapPersistence reports a durable dump failure for path.
func WrapPersistence(err error, path, message string) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, ErrorTypePersistence, message).WithDetail("path", path)
}

// WrapDescriptorExtraction reports a partition value that could not be read
// from a finalized column.
func WrapDescriptorExtraction(err error, column, row int) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, ErrorTypeDescriptorExtraction, "failed to extract partition value").
		WithDetail("column", column).
		WithDetail("row", row)
}

// NewAlreadyExists reports a duplicate registration of kind under name.
func NewAlreadyExists(kind, name string) *Error {
	return &Error{
		Type:    ErrorTypeAlreadyExists,
		Message: kind + " already exists",
		Details: map[string]interface{}{"name": name},
		Stack:   captureStack(2),
	}
}
