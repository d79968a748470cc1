package getcoveragesummary

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "category"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Caller"),
			"studentId":       validation.NonEmpty("Student"),
			"category":        validation.NonEmpty("Portfolio category"),
			"qualificationId": {Type: "string", Description: "Required when the caller is staff"},
		},
	}
}
