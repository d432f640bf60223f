package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["name", "kind"],
	"properties": {
		"name":  {"type": "string"},
		"kind":  {"type": "string", "enum": ["a", "b"]},
		"count": {"type": "integer", "minimum": 0}
	}
}`

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestSchema_ValidateInput(t *testing.T) {
	schema := MustCompile(testSchema)

	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
		wantCode  string
	}{
		{
			name:      "valid document",
			input:     map[string]interface{}{"name": "x", "kind": "a", "count": 3.0},
			wantValid: true,
		},
		{
			name:      "missing required property reported by name",
			input:     map[string]interface{}{"kind": "a"},
			wantField: "name",
			wantCode:  CodeRequired,
		},
		{
			name:      "enum mismatch",
			input:     map[string]interface{}{"name": "x", "kind": "c"},
			wantField: "kind",
			wantCode:  CodeEnum,
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"name": "x", "kind": "a", "count": "many"},
			wantField: "count",
			wantCode:  CodeInvalidType,
		},
		{
			name:      "below minimum",
			input:     map[string]interface{}{"name": "x", "kind": "a", "count": -1.0},
			wantField: "count",
			wantCode:  CodeNumberGTE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.ValidateInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				return
			}
			require.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
			first, ok := result.FirstErrorForField(tt.wantField)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, first.Code)
			assert.NotEmpty(t, first.Message)
			assert.Equal(t, first, result.GetErrorsForField(tt.wantField)[0])
		})
	}
}
