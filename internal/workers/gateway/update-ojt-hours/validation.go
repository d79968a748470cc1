package updateojthours

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "qualificationId", "hours"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Staff member recording hours"),
			"studentId":       validation.NonEmpty("Student"),
			"qualificationId": validation.NonEmpty("Qualification"),
			"hours": {
				Type:        "integer",
				Description: "Off-the-job training hours completed so far",
				Minimum:     validation.Float(0),
			},
			"hoursRequired": {
				Type:        "integer",
				Description: "Target hours; keeps the stored target when omitted",
				Minimum:     validation.Float(1),
			},
		},
	}
}
