package signoff

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "submissionId"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Assessor signing off"),
			"submissionId": validation.NonEmpty("Approved submission"),
		},
	}
}
