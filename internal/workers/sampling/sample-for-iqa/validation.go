package sampleforiqa

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "submissionId"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Internal quality assurer"),
			"submissionId": validation.NonEmpty("Signed-off submission to sample"),
		},
	}
}
