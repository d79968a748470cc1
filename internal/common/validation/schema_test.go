package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolio-workers/internal/common/errors"
)

func feedbackSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"submissionId": NonEmpty("Submission to grade"),
			"grade": {
				Type: "string",
				Enum: []string{"pass", "merit", "distinction", "refer", "not_yet_competent"},
			},
			"hours":      {Type: "integer", Minimum: Float(0)},
			"signedOnAt": {Type: "string", Format: "date-time"},
		},
		Required: []string{"submissionId", "grade"},
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantValid bool
		wantField string
	}{
		{
			name:      "valid with extra process variables",
			document:  `{"submissionId":"s-1","grade":"merit","processStage":"review"}`,
			wantValid: true,
		},
		{
			name:      "missing required field",
			document:  `{"grade":"pass"}`,
			wantField: "submissionId",
		},
		{
			name:      "empty required string",
			document:  `{"submissionId":"","grade":"pass"}`,
			wantField: "submissionId",
		},
		{
			name:      "unknown grade",
			document:  `{"submissionId":"s-1","grade":"excellent"}`,
			wantField: "grade",
		},
		{
			name:      "negative hours",
			document:  `{"submissionId":"s-1","grade":"pass","hours":-5}`,
			wantField: "hours",
		},
		{
			name:      "bad date",
			document:  `{"submissionId":"s-1","grade":"pass","signedOnAt":"yesterday"}`,
			wantField: "signedOnAt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateJSON(tt.document, feedbackSchema())

			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.NoError(t, result.Err())
				return
			}
			assert.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
		})
	}
}

func TestValidationResult_ErrIsValidationError(t *testing.T) {
	result := ValidateInput(map[string]interface{}{"grade": "pass"}, feedbackSchema())
	require.False(t, result.Valid)

	err := result.Err()

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, "submissionId", stdErr.Metadata["field"])
}

func TestValidateJSON_MalformedDocument(t *testing.T) {
	result := ValidateJSON(`{"submissionId":`, feedbackSchema())

	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err(), apperrors.ErrValidation)
}
