// Package schema backs declared-port-schema validation for ports that carry
// a nested JSON Schema (typically "any" ports holding objects or arrays),
// layered on top of the primitive-type checks pkg/node performs directly
// (number/string/boolean/function/any).
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates a decoded JSON value against a compiled JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
	raw    string
}

// Compile parses schemaJSON (a JSON Schema document) into a reusable
// Validator.
func Compile(schemaJSON string) (*Validator, error) {
	loader := gojsonschema.NewStringLoader(schemaJSON)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}
	return &Validator{schema: compiled, raw: schemaJSON}, nil
}

// Validate checks value (any JSON-decodable Go value: map[string]any,
// []any, etc.) against the compiled schema, returning the list of
// validation failure descriptions, empty when value conforms.
func (v *Validator) Validate(value any) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return nil, fmt.Errorf("schema: validate: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	failures := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		failures = append(failures, re.String())
	}
	return failures, nil
}

// String returns the raw JSON Schema document the Validator was compiled
// from, useful for error messages and introspection.
func (v *Validator) String() string { return v.raw }
