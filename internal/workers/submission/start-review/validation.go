package startreview

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "submissionId"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Assessor taking the review"),
			"submissionId": validation.NonEmpty("Submission to review"),
		},
	}
}
