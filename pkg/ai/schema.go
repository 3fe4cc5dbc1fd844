package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const solutionSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["solution_steps", "final_answer"],
	"properties": {
		"rephrased_question": {"type": "string"},
		"solution_steps": {
			"anyOf": [
				{"type": "string", "minLength": 1},
				{"type": "array", "minItems": 1, "items": {"type": "string"}}
			]
		},
		"final_answer": {"type": ["string", "number"]}
	}
}`

const difficultySchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["difficulties"],
	"properties": {
		"difficulties": {
			"type": "array",
			"items": {"type": "number", "minimum": 1, "maximum": 10}
		},
		"reasoning": {"type": "string"}
	}
}`

var (
	solutionSchema   = jsonschema.MustCompileString("labgen://solution.json", solutionSchemaJSON)
	difficultySchema = jsonschema.MustCompileString("labgen://difficulty.json", difficultySchemaJSON)
)

// decodeValidated checks content against schema before decoding it into target.
func decodeValidated(schema *jsonschema.Schema, content string, target any) error {
	decoder := json.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.UseNumber()

	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return &InvalidResponseError{Content: content, Err: fmt.Errorf("invalid json: %w", err)}
	}
	if err := schema.Validate(parsed); err != nil {
		return &InvalidResponseError{Content: content, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	if err := json.Unmarshal([]byte(content), target); err != nil {
		return &InvalidResponseError{Content: content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
