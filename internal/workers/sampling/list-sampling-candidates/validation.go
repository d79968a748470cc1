package listsamplingcandidates

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Internal quality assurer"),
			"includeStats": {Type: "boolean", Description: "Also count sampling records by status"},
		},
	}
}
