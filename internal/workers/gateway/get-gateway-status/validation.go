package getgatewaystatus

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "qualificationId"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Caller; the student or assigned staff"),
			"studentId":       validation.NonEmpty("Student"),
			"qualificationId": validation.NonEmpty("Qualification"),
		},
	}
}
