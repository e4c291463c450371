package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nvandessel/deskpilot/internal/models"
)

// actionSchemaTemplate is the strict contract the completion result must
// satisfy before anything is allowed near the input devices. Coordinate
// bounds are substituted from the configured screen size.
const actionSchemaTemplate = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "additionalProperties": false,
    "required": ["type"],
    "properties": {
      "type": {"enum": ["click", "type", "keypress", "wait"]},
      "target": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "x": {"type": "integer", "minimum": 0, "maximum": %d},
          "y": {"type": "integer", "minimum": 0, "maximum": %d},
          "key": {"type": "string", "minLength": 1}
        }
      },
      "value": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "text": {"type": "string"},
          "duration_ms": {"type": "integer", "minimum": 0, "maximum": 600000}
        }
      }
    },
    "allOf": [
      {
        "if": {"properties": {"type": {"const": "click"}}},
        "then": {
          "required": ["target"],
          "properties": {"target": {"required": ["x", "y"]}}
        }
      },
      {
        "if": {"properties": {"type": {"const": "keypress"}}},
        "then": {
          "required": ["target"],
          "properties": {"target": {"required": ["key"]}}
        }
      },
      {
        "if": {"properties": {"type": {"const": "type"}}},
        "then": {
          "required": ["value"],
          "properties": {"value": {"required": ["text"]}}
        }
      },
      {
        "if": {"properties": {"type": {"const": "wait"}}},
        "then": {
          "required": ["value"],
          "properties": {"value": {"required": ["duration_ms"]}}
        }
      }
    ]
  }
}`

// validator checks completion output against the action schema.
type validator struct {
	schema *jsonschema.Schema
}

func newValidator(screenWidth, screenHeight int) (*validator, error) {
	schemaJSON := fmt.Sprintf(actionSchemaTemplate, screenWidth-1, screenHeight-1)
	c := jsonschema.NewCompiler()
	if err := c.AddResource("actions.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("loading action schema: %w", err)
	}
	schema, err := c.Compile("actions.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling action schema: %w", err)
	}
	return &validator{schema: schema}, nil
}

// parse extracts, parses and validates the action array from raw completion
// text. On success the actions are well-typed and within bounds; any failure
// is returned for the corrective follow-up prompt.
func (v *validator) parse(raw string) ([]models.Action, error) {
	candidate, err := extractArray(raw)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("response violates the action schema: %w", err)
	}

	var actions []models.Action
	if err := json.Unmarshal([]byte(candidate), &actions); err != nil {
		return nil, fmt.Errorf("decoding actions: %w", err)
	}
	return actions, nil
}

// extractArray returns the outermost JSON array in the completion text,
// tolerating markdown fences or prose around it.
func extractArray(raw string) (string, error) {
	cleaned := cleanText(raw)
	start := strings.IndexByte(cleaned, '[')
	end := strings.LastIndexByte(cleaned, ']')
	if start == -1 || end == -1 || start > end {
		return "", fmt.Errorf("response contains no JSON array")
	}
	return cleaned[start : end+1], nil
}
