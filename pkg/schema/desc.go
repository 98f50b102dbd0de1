// Package schema holds rtstore table descriptors and maps the logical
// column types they declare onto Arrow physical types.
package schema

import (
	"github.com/rtstore/rtstore/pkg/errors"
	stringpool "github.com/rtstore/rtstore/pkg/strings"
)

// ColumnDesc describes one column of a table.
type ColumnDesc struct {
	Name     string      `yaml:"name" json:"name"`
	Type     LogicalType `yaml:"type" json:"type"`
	Nullable bool        `yaml:"nullable" json:"nullable"`
}

// SchemaDesc is an ordered column list. Column order defines the position
// of every cell in a row.
type SchemaDesc struct {
	Columns []ColumnDesc `yaml:"columns" json:"columns"`
	Version int32        `yaml:"version" json:"version"`
}

// PartitionDesc names the columns a table is partitioned by and how many
// partitions the metadata service spreads it over.
type PartitionDesc struct {
	Columns []string `yaml:"columns" json:"columns"`
	Count   int32    `yaml:"count" json:"count"`
}

// TableDesc is the definition of a table as registered with the metadata
// service.
type TableDesc struct {
	// Names is the qualified name, e.g. ["db1", "device_signal"].
	Names     []string       `yaml:"names" json:"names"`
	Schema    *SchemaDesc    `yaml:"schema" json:"schema"`
	Partition *PartitionDesc `yaml:"partition,omitempty" json:"partition,omitempty"`
}

// ID returns the qualified table name joined with ".".
func (d *TableDesc) ID() (string, error) {
	if d == nil || len(d.Names) == 0 {
		return "", errors.New(errors.ErrorTypeValidation, "table description has no names")
	}
	for _, n := range d.Names {
		if n == "" {
			return "", errors.New(errors.ErrorTypeValidation, "table name part is empty")
		}
	}
	return stringpool.JoinPooled(d.Names, "."), nil
}

// Name returns the last name part, the bare table name.
func (d *TableDesc) Name() string {
	if d == nil || len(d.Names) == 0 {
		return ""
	}
	return d.Names[len(d.Names)-1]
}

// Validate checks the structural rules of a descriptor. Column types are
// checked by ToArrowSchema.
func (d *TableDesc) Validate() error {
	id, err := d.ID()
	if err != nil {
		return err
	}
	if d.Schema == nil || len(d.Schema.Columns) == 0 {
		return errors.New(errors.ErrorTypeValidation, "table has no columns").WithDetail("table", id)
	}

	seen := make(map[string]struct{}, len(d.Schema.Columns))
	for i, c := range d.Schema.Columns {
		if c.Name == "" {
			return errors.Newf(errors.ErrorTypeValidation, "column %d has no name", i).WithDetail("table", id)
		}
		if _, dup := seen[c.Name]; dup {
			return errors.Newf(errors.ErrorTypeValidation, "duplicate column %q", c.Name).WithDetail("table", id)
		}
		seen[c.Name] = struct{}{}
	}

	if d.Partition != nil {
		if d.Partition.Count < 0 {
			return errors.New(errors.ErrorTypeValidation, "partition count cannot be negative").WithDetail("table", id)
		}
		for _, c := range d.Partition.Columns {
			if _, ok := seen[c]; !ok {
				return errors.Newf(errors.ErrorTypeValidation, "partition column %q is not in the schema", c).WithDetail("table", id)
			}
		}
	}
	return nil
}
