// Package columnar converts row batches into Arrow records and derives the
// views built on top of them.
//
// The Encoder walks batches, then rows, then columns, and keeps one lazily
// created builder per column position. Each physical type has exactly one
// builder variant and each variant accepts exactly one cell kind; a cell of
// any other kind aborts the conversion:
//
//	enc := columnar.NewEncoder(columnar.WithTable("db1.device_signal"))
//	rec, err := enc.Encode(schema, batches)
//	if err != nil {
//	    return err
//	}
//	defer rec.Release()
//
// SchemaToRecord and SchemaToDDLRecord describe a schema by feeding
// synthetic rows through the same Encoder. BatchesToPartitions lists
// in-memory records as virtual files for query planning.
package columnar
