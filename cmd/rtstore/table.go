package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/internal/memnode"
	"github.com/rtstore/rtstore/pkg/columnar"
	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
	"github.com/rtstore/rtstore/pkg/row"
	"github.com/rtstore/rtstore/pkg/schema"
)

// openTable loads a table description and builds a memory node table on
// the configured storage.
func (a *app) openTable(ctx context.Context, descPath string) (*memnode.Table, filesystem.FileSystem, error) {
	desc, err := schema.LoadTableDesc(descPath)
	if err != nil {
		return nil, nil, err
	}
	fs, err := filesystem.New(ctx, a.cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := memnode.NewTable(desc, fs, memnode.WithLogger(a.log), memnode.WithMetrics(a.metrics))
	if err != nil {
		_ = fs.Close()
		return nil, nil, err
	}
	return tbl, fs, nil
}

func newDescribeCmd(a *app) *cobra.Command {
	var tablePath string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe the columns of a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl, fs, err := a.openTable(cmd.Context(), tablePath)
			if err != nil {
				return err
			}
			defer fs.Close()

			rec, err := tbl.Describe()
			if err != nil {
				return err
			}
			defer rec.Release()
			return printRecord(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVarP(&tablePath, "table", "t", "", "Path to YAML table description (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newShowCreateCmd(a *app) *cobra.Command {
	var tablePath string

	cmd := &cobra.Command{
		Use:   "show-create",
		Short: "Print the create table statement of a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl, fs, err := a.openTable(cmd.Context(), tablePath)
			if err != nil {
				return err
			}
			defer fs.Close()

			rec, err := tbl.ShowCreate()
			if err != nil {
				return err
			}
			defer rec.Release()
			return printRecord(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVarP(&tablePath, "table", "t", "", "Path to YAML table description (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	var tablePath, rowsPath, out, format string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert JSON rows into a columnar file",
		Long: `Convert reads a JSON array of rows, each an array of values in column
order, and writes them as one columnar file on the configured storage.

Example:
  rtstore convert --table t1.yaml --rows rows.json --out t1/0001.parquet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "parquet" && format != "arrow" {
				return errors.Newf(errors.ErrorTypeValidation, "unsupported format %q", format)
			}
			ctx := cmd.Context()

			tbl, fs, err := a.openTable(ctx, tablePath)
			if err != nil {
				return err
			}
			defer fs.Close()

			f, err := os.Open(rowsPath) //nolint:gosec // G304: path is supplied by the operator
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeNotFound, "failed to open rows file").WithDetail("path", rowsPath)
			}
			rows, err := columnar.DecodeJSONRows(f, tbl.Schema())
			_ = f.Close()
			if err != nil {
				return err
			}

			if err := tbl.Append(&row.Batch{Rows: rows, SchemaVersion: tbl.SchemaVersion()}); err != nil {
				return err
			}

			var n int
			if format == "arrow" {
				n, err = tbl.Spill(ctx, out)
			} else {
				n, err = tbl.Flush(ctx, out)
			}
			if err != nil {
				return err
			}

			a.log.Info("converted rows", zap.String("out", out), zap.String("format", format), zap.Int("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tablePath, "table", "t", "", "Path to YAML table description (required)")
	cmd.Flags().StringVarP(&rowsPath, "rows", "r", "", "Path to JSON rows file (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file name relative to the storage root (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "parquet", "Output format (parquet, arrow)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("rows")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// printRecord writes a record of string columns as an aligned table.
func printRecord(w io.Writer, rec arrow.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, f := range rec.Schema().Fields() {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, f.Name)
	}
	fmt.Fprintln(tw)

	for r := 0; r < int(rec.NumRows()); r++ {
		for c := 0; c < int(rec.NumCols()); c++ {
			if c > 0 {
				fmt.Fprint(tw, "\t")
			}
			col, ok := rec.Column(c).(*array.String)
			if !ok {
				return errors.Newf(errors.ErrorTypeInternal, "column %d is not a string column", c)
			}
			fmt.Fprint(tw, col.Value(r))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
