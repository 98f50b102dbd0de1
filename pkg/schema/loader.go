package schema

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rtstore/rtstore/pkg/errors"
)

// ParseTableDesc decodes a YAML table descriptor and validates it.
// Unknown keys are rejected.
func ParseTableDesc(data []byte) (*TableDesc, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var desc TableDesc
	if err := dec.Decode(&desc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to parse table description")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// LoadTableDesc reads and parses a YAML table descriptor file.
func LoadTableDesc(path string) (*TableDesc, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "failed to read table description").
			WithDetail("path", path)
	}
	return ParseTableDesc(data)
}
