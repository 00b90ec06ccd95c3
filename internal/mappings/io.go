package mappings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const tableSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["source_signature", "target_equivalent", "conversion_kind"],
    "properties": {
      "source_signature": {"type": "string", "minLength": 1},
      "target_equivalent": {"type": "string"},
      "conversion_kind": {"enum": ["direct", "wrapper", "complex", "impossible"]},
      "notes": {"type": "string"},
      "example": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"}
        },
        "additionalProperties": false
      }
    },
    "additionalProperties": false
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadTableSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("mappings.schema.json", tableSchema)
	})
	return compiledSchema, schemaErr
}

// ValidateEntries checks a mapping list against the table schema.
func ValidateEntries(entries []Mapping) error {
	schema, err := loadTableSchema()
	if err != nil {
		return fmt.Errorf("failed to compile mapping schema: %w", err)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal mappings for validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize mappings for validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("mapping table validation failed: %w", err)
	}
	return nil
}

// LoadFile reads a mapping table from a JSON or YAML file, picked by
// extension, and validates it before returning.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var entries []Mapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse mapping JSON: %w", err)
		}
	}

	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}

	t := NewTable()
	t.AddAll(entries)
	return t, nil
}

// SaveFile writes the table to a JSON or YAML file, picked by extension.
// Entries keep their insertion order.
func SaveFile(path string, t *Table) error {
	entries := t.Entries()

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(entries)
	default:
		data, err = json.MarshalIndent(entries, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal mapping table: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}
	return nil
}
