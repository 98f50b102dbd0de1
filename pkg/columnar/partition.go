package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"github.com/apache/arrow-go/v18/arrow/util"

	"github.com/rtstore/rtstore/pkg/errors"
)

// FileRange is a byte range inside a file.
type FileRange struct {
	Start int64
	End   int64
}

// PartitionedFile is a virtual file handed to query planning. Records held
// in memory have no path and no range.
type PartitionedFile struct {
	Path string
	// Size is the in-memory footprint of the whole record the row came
	// from, shared by every row of that record.
	Size            int64
	PartitionValues []scalar.Scalar
	Range           *FileRange
}

// BatchesToPartitions lists one virtual file per row of every record, in
// record then row order. Each file carries the row's value for every
// column.
func BatchesToPartitions(batches []arrow.Record) ([]PartitionedFile, error) {
	total := 0
	for _, b := range batches {
		total += int(b.NumRows())
	}

	files := make([]PartitionedFile, 0, total)
	for _, batch := range batches {
		var size int64
		for _, col := range batch.Columns() {
			size += util.TotalArraySize(col)
		}

		for r := 0; r < int(batch.NumRows()); r++ {
			values := make([]scalar.Scalar, batch.NumCols())
			for c, col := range batch.Columns() {
				s, err := scalar.GetScalar(col, r)
				if err != nil {
					return nil, errors.WrapDescriptorExtraction(err, c, r)
				}
				values[c] = s
			}
			files = append(files, PartitionedFile{
				Size:            size,
				PartitionValues: values,
			})
		}
	}
	return files, nil
}
