package doc

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates documents before conversion.
type Schema struct {
	s *jsonschema.Schema
}

// CompileSchema loads a JSON schema file (draft 2020-12 unless the file
// says otherwise).
func CompileSchema(path string) (*Schema, error) {
	s, err := jsonschema.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return &Schema{s: s}, nil
}

func (s *Schema) Validate(d *Document) error {
	if s == nil {
		return nil
	}
	if err := s.s.Validate(d.Plain()); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
