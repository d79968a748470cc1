package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "portfolio-workers/internal/common/errors"
)

// JSONSchema describes a worker's job variables. Job payloads carry every
// process variable, so undeclared properties are always accepted.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Format      string              `json:"format,omitempty"`
	Default     interface{}         `json:"default,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }

// NonEmpty is a string property that must carry at least one character.
func NonEmpty(description string) Property {
	return Property{Type: "string", Description: description, MinLength: Int(1)}
}

// ValidateJSON checks a raw JSON document, such as a job's variables.
func ValidateJSON(document string, schema JSONSchema) *ValidationResult {
	return validate(gojsonschema.NewStringLoader(document), schema)
}

// ValidateInput checks an already decoded document.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	return validate(gojsonschema.NewGoLoader(input), schema)
}

func validate(document gojsonschema.JSONLoader, schema JSONSchema) *ValidationResult {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), document)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_DOCUMENT",
			}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(e),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}

// fieldOf names the offending property. gojsonschema reports a missing
// required property against its parent object.
func fieldOf(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			if e.Field() == "(root)" {
				return p
			}
			return e.Field() + "." + p
		}
	}
	return e.Field()
}

// Err returns nil for a valid result and a VALIDATION_ERROR naming the first
// offending field otherwise.
func (vr *ValidationResult) Err() error {
	if vr.Valid || len(vr.Errors) == 0 {
		return nil
	}
	first := vr.Errors[0]
	return apperrors.NewValidationError(first.Field, strings.Join(vr.GetErrorMessages(), "; "))
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
