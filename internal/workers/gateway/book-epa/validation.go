package bookepa

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "qualificationId", "date"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Staff member booking the assessment"),
			"studentId":       validation.NonEmpty("Student"),
			"qualificationId": validation.NonEmpty("Qualification"),
			"date": {
				Type:        "string",
				Description: "End-point assessment date",
				Format:      "date-time",
			},
		},
	}
}
