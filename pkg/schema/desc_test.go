package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rtstore/rtstore/pkg/errors"
)

func simpleTableDesc(names ...string) *TableDesc {
	return &TableDesc{
		Names: names,
		Schema: &SchemaDesc{
			Columns: []ColumnDesc{{Name: "col1", Type: Bool, Nullable: true}},
			Version: 1,
		},
	}
}

func TestTableDescID(t *testing.T) {
	id, err := simpleTableDesc("db1", "t1").ID()
	require.NoError(t, err)
	assert.Equal(t, "db1.t1", id)
	assert.Equal(t, "t1", simpleTableDesc("db1", "t1").Name())

	_, err = simpleTableDesc().ID()
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = simpleTableDesc("db1", "").ID()
	assert.Error(t, err)

	var nilDesc *TableDesc
	_, err = nilDesc.ID()
	assert.Error(t, err)
}

func TestTableDescValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*TableDesc)
		errorMsg string
	}{
		{"valid", func(*TableDesc) {}, ""},
		{"no schema", func(d *TableDesc) { d.Schema = nil }, "table has no columns"},
		{"no columns", func(d *TableDesc) { d.Schema.Columns = nil }, "table has no columns"},
		{"unnamed column", func(d *TableDesc) { d.Schema.Columns[0].Name = "" }, "has no name"},
		{"duplicate column", func(d *TableDesc) {
			d.Schema.Columns = append(d.Schema.Columns, ColumnDesc{Name: "col1", Type: Int})
		}, "duplicate column"},
		{"unknown partition column", func(d *TableDesc) {
			d.Partition = &PartitionDesc{Columns: []string{"nope"}}
		}, "partition column"},
		{"negative partition count", func(d *TableDesc) {
			d.Partition = &PartitionDesc{Count: -1}
		}, "partition count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := simpleTableDesc("test", "t1")
			tt.mutate(d)
			err := d.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLogicalTypeYAML(t *testing.T) {
	var cols []ColumnDesc
	input := `
- name: a
  type: bigint
- name: b
  type: 12
- name: c
  type: 42
`
	require.NoError(t, yaml.Unmarshal([]byte(input), &cols))
	require.Len(t, cols, 3)
	assert.Equal(t, BigInt, cols[0].Type)
	assert.Equal(t, Varchar, cols[1].Type)
	assert.Equal(t, LogicalType(42), cols[2].Type)
	assert.False(t, cols[2].Type.Valid())

	out, err := yaml.Marshal(cols)
	require.NoError(t, err)
	assert.Contains(t, string(out), "type: bigint")
	assert.Contains(t, string(out), "type: varchar")
	assert.Contains(t, string(out), "type: 42")

	var bad []ColumnDesc
	assert.Error(t, yaml.Unmarshal([]byte("- name: x\n  type: blob\n"), &bad))
}

func TestLoadTableDesc(t *testing.T) {
	content := `
names: [db1, device_signal]
schema:
  version: 2
  columns:
    - name: ts
      type: timestamp_millis
    - name: device_id
      type: varchar
    - name: signal
      type: int
      nullable: true
partition:
  columns: [device_id]
  count: 4
`
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	desc, err := LoadTableDesc(path)
	require.NoError(t, err)

	id, _ := desc.ID()
	assert.Equal(t, "db1.device_signal", id)
	assert.Equal(t, int32(2), desc.Schema.Version)
	require.Len(t, desc.Schema.Columns, 3)
	assert.Equal(t, TimestampMillis, desc.Schema.Columns[0].Type)
	assert.True(t, desc.Schema.Columns[2].Nullable)
	assert.Equal(t, []string{"device_id"}, desc.Partition.Columns)
	assert.Equal(t, int32(4), desc.Partition.Count)
}

func TestParseTableDescRejectsUnknownKeys(t *testing.T) {
	_, err := ParseTableDesc([]byte("names: [t1]\nschemas: {}\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestLoadTableDescMissingFile(t *testing.T) {
	_, err := LoadTableDesc(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
