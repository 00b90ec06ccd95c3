package trace

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const traceSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["language", "snapshots", "metadata"],
  "properties": {
    "language": {"type": "string", "minLength": 1},
    "snapshots": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["timestamp", "functionName", "lineNumber"],
        "properties": {
          "timestamp": {"type": "number"},
          "functionName": {"type": "string"},
          "lineNumber": {"type": "integer"},
          "variables": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "returnValue": {"type": "string"},
          "callStack": {
            "type": "array",
            "items": {"type": "string"}
          }
        },
        "additionalProperties": false
      }
    },
    "metadata": {
      "type": "object",
      "required": ["sourceFile"],
      "properties": {
        "sourceFile": {"type": "string"},
        "executionTime": {"type": "number"},
        "snapshotCount": {"type": "integer"}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadTraceSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("trace.schema.json", traceSchema)
	})
	return compiledSchema, schemaErr
}

func validateTrace(data []byte) error {
	schema, err := loadTraceSchema()
	if err != nil {
		return fmt.Errorf("failed to compile trace schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("trace validation failed: %w", err)
	}
	return nil
}
