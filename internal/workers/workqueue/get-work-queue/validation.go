package getworkqueue

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId"},
		Properties: map[string]validation.Property{
			"actorId": validation.NonEmpty("Staff member reading their queue"),
			"staffId": {Type: "string", Description: "Queue owner; must match actorId when given"},
		},
	}
}
