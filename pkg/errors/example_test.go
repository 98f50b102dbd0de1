// Package errors provides examples of structured error handling in rtstore.
package errors_test

import (
	"fmt"
	"io"

	"github.com/rtstore/rtstore/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.ErrorTypeValidation, "table description is empty").
		WithDetail("request", "create_table")

	fmt.Println(err.Error())

	// Output:
	// validation: table description is empty
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.ErrShortWrite

	err := errors.WrapPersistence(originalErr, "/data/t1/0001.parquet", "failed to write record batch")

	if errors.IsType(err, errors.ErrorTypePersistence) {
		fmt.Println("This is a persistence error")
	}

	// Go's standard errors.Is still sees the cause
	if errors.Is(err, io.ErrShortWrite) {
		fmt.Println("Original error was a short write")
	}

	path, _ := err.Detail("path")
	fmt.Println(path)

	// Output:
	// This is a persistence error
	// Original error was a short write
	// /data/t1/0001.parquet
}

// ExampleNewTypeMismatch shows the details carried by a type mismatch.
func ExampleNewTypeMismatch() {
	err := errors.NewTypeMismatch("int32", "col1", "varchar")

	expected, _ := err.Detail("expected")
	column, _ := err.Detail("column")
	fmt.Println(err)
	fmt.Printf("expected=%v column=%v\n", expected, column)

	// Output:
	// type_mismatch: expected int32 for column "col1", got varchar
	// expected=int32 column=col1
}

// ExampleNewSchemaConversion shows the raw code in the message.
func ExampleNewSchemaConversion() {
	fmt.Println(errors.NewSchemaConversion("col3", 99))

	// Output:
	// schema_conversion: unrecognized logical type code 99 for column "col3"
}

// ExampleWrapEncoding shows an encoding failure wrapping its cause.
func ExampleWrapEncoding() {
	err := errors.WrapEncoding(io.ErrUnexpectedEOF, "append to column builder failed").
		WithDetail("column", "price")

	fmt.Println(err)
	fmt.Println(errors.Is(err, io.ErrUnexpectedEOF))
	fmt.Println(errors.WrapEncoding(nil, "ignored") == nil)

	// Output:
	// encoding: append to column builder failed: unexpected EOF
	// true
	// true
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	convErr := errors.NewSchemaConversion("col3", 99)
	wrappedErr := errors.Wrap(convErr, errors.ErrorTypeValidation, "create table rejected")

	fmt.Printf("Is schema conversion error: %v\n", errors.IsType(convErr, errors.ErrorTypeSchemaConversion))

	// IsType looks at the outermost structured error
	fmt.Printf("Wrapped error is validation type: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeValidation))
	fmt.Printf("Wrapped error is schema conversion type: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeSchemaConversion))
	fmt.Printf("Type of plain error: %v\n", errors.TypeOf(io.EOF))

	// Output:
	// Is schema conversion error: true
	// Wrapped error is validation type: true
	// Wrapped error is schema conversion type: false
	// Type of plain error: internal
}

// Example_errorChain shows how messages accumulate through wrapping.
func Example_errorChain() {
	err := errors.New(errors.ErrorTypeConnection, "connection timeout").
		WithDetail("bucket", "rtstore-data")

	err = errors.WrapPersistence(err, "s3://rtstore-data/t1/0001.parquet", "failed to close file")

	fmt.Println("Full error chain:", err)

	// Output:
	// Full error chain: persistence: failed to close file: connection: connection timeout
}
