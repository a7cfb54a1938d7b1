package plan

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the structural schema of a plan document. Slot
// contents are checked later by each block's factory.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "statements"],
  "additionalProperties": false,
  "properties": {
    "name":        {"type": "string", "minLength": 1},
    "environment": {"type": "string"},
    "bizunit":     {"type": "string"},
    "version":     {"type": "string"},
    "statements":  {"type": "array", "items": {"$ref": "#/$defs/block"}}
  },
  "$defs": {
    "block": {
      "type": "object",
      "required": ["type", "action"],
      "additionalProperties": false,
      "properties": {
        "type":     {"type": "string", "minLength": 1},
        "action":   {"type": "string", "minLength": 1},
        "extra":    {"type": "object"},
        "template": {"type": "object"}
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("planrunner://plan.schema.json", documentSchema)

// Validate checks a decoded document (JSON-compatible natives) against the
// plan document schema.
func Validate(doc any) error {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return malformed("%s", leafMessage(ve))
	}
	return malformed("%v", err)
}

// leafMessage reports the most specific cause of a validation failure.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
