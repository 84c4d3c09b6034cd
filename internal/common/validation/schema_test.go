package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coordinateSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"lat", "lng"},
	"properties": map[string]interface{}{
		"lat": map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90},
		"lng": map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180},
	},
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Register("coords", coordinateSchema))

	tests := []struct {
		name      string
		document  map[string]interface{}
		wantValid bool
		wantField string
	}{
		{"valid", map[string]interface{}{"lat": 37.77, "lng": -122.42}, true, ""},
		{"missing lng", map[string]interface{}{"lat": 37.77}, false, "(root)"},
		{"lat out of range", map[string]interface{}{"lat": 91.0, "lng": 0.0}, false, "lat"},
		{"wrong type", map[string]interface{}{"lat": "north", "lng": 0.0}, false, "lat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Validate("coords", tt.document)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestValidator_UnknownSchemaPasses(t *testing.T) {
	v := NewValidator()
	result, err := v.Validate("nothing-registered", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateInput_AdHoc(t *testing.T) {
	result, err := ValidateInput(map[string]interface{}{"lat": 10.0, "lng": 10.0}, coordinateSchema)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Summary())
}
