package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var stringList = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

// ProfileSchema is the response contract sent to the model and checked on the way back.
var ProfileSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"transcript":          map[string]any{"type": "string", "description": "Full transcription of the audio."},
		"candidateName":       map[string]any{"type": "string", "description": "Name of the candidate if mentioned, otherwise 'Unknown Candidate'."},
		"professionalSummary": map[string]any{"type": "string", "description": "A professional summary suitable for a CV header (max 50 words)."},
		"hardSkills":          withDescription(stringList, "List of technical or hard skills mentioned."),
		"softSkills":          withDescription(stringList, "List of soft skills demonstrated or mentioned."),
		"tags":                withDescription(stringList, "Keywords for searching this candidate."),
	},
	"required": []any{"transcript", "candidateName", "professionalSummary", "hardSkills", "softSkills", "tags"},
}

// propertyOrder keeps field order stable wherever a schema map is rendered.
var propertyOrder = []string{"transcript", "candidateName", "professionalSummary", "hardSkills", "softSkills", "tags"}

func withDescription(schema map[string]any, description string) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	out["description"] = description
	return out
}

// Validator checks JSON documents against a compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator(schemaMap map[string]any) (*Validator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("profile.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
