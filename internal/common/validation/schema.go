package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Error types reported by gojsonschema that callers branch on.
const (
	CodeRequired    = "required"
	CodeInvalidType = "invalid_type"
	CodeEnum        = "enum"
	CodeFormat      = "format"
	CodeNumberGTE   = "number_gte"
)

// RootField is the field name gojsonschema uses for the document itself.
const RootField = "(root)"

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema. It is read-only after compilation and
// may be shared between goroutines.
type Schema struct {
	schema *gojsonschema.Schema
}

func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateInput validates a decoded JSON document. The error return is
// reserved for documents gojsonschema cannot load at all.
func (s *Schema) ValidateInput(input interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}, nil
}

// required errors are reported against the parent object; the missing
// property name lives in the details.
func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == CodeRequired {
		if property, ok := desc.Details()["property"].(string); ok && property != "" {
			return property
		}
	}
	return desc.Field()
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

// FirstErrorForField returns the earliest error reported against field.
func (vr *ValidationResult) FirstErrorForField(field string) (ValidationError, bool) {
	for _, err := range vr.Errors {
		if err.Field == field {
			return err, true
		}
	}
	return ValidationError{}, false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
