package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed account.schema.json
var accountSchemaJSON []byte

// Violation is one way a record disagrees with the account schema.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Validator checks account records against the embedded JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(accountSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to load account schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate returns every violation in r; an empty slice means the record
// matches.
func (v *Validator) Validate(r Record) ([]Violation, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	violations := []Violation{}
	for _, e := range result.Errors() {
		violations = append(violations, Violation{Field: e.Field(), Message: e.Description()})
	}
	return violations, nil
}
