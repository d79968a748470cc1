package submitcategory

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "qualificationId", "category"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Student performing the submission"),
			"studentId":       validation.NonEmpty("Student who owns the category"),
			"qualificationId": validation.NonEmpty("Qualification the category belongs to"),
			"category": {
				Type:        "string",
				Description: "Portfolio category name",
				MinLength:   validation.Int(1),
				MaxLength:   validation.Int(200),
			},
		},
	}
}
