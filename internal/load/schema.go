package load

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// prototypeSchema validates the shape of a prototype document before any
// decoding happens, so authoring mistakes surface as schema violations with
// field paths instead of decode errors.
const prototypeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Prototype document",
  "type": "object",
  "required": ["id"],
  "additionalProperties": false,
  "properties": {
    "id": {
      "type": "string",
      "minLength": 1
    },
    "templates": {
      "type": "array",
      "items": {
        "type": "string",
        "minLength": 1
      }
    },
    "children": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path"],
        "additionalProperties": false,
        "properties": {
          "path": {
            "type": "string",
            "minLength": 1
          },
          "merge_key": {
            "type": "string"
          }
        }
      }
    },
    "requires_entity": {
      "type": "boolean"
    },
    "schematics": {
      "type": "object"
    }
  }
}`

// compileSchema returns the document schema, either the embedded default or
// the override file configured by the host.
func compileSchema(overridePath string) (*jsonschema.Schema, error) {
	source := prototypeSchema
	name := "prototype.schema.json"

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		source = string(data)
		name = overridePath
	}

	schema, err := jsonschema.CompileString(name, source)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateDocument checks raw YAML against the schema. The document is
// re-decoded into plain interface values since the validator does not read
// YAML nodes.
func validateDocument(schema *jsonschema.Schema, data []byte) error {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return err
	}
	return schema.Validate(value)
}
