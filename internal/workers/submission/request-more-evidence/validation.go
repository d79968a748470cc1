package requestmoreevidence

import "portfolio-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "submissionId"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Reviewing assessor"),
			"submissionId": validation.NonEmpty("Submission under review"),
			"note": {
				Type:        "string",
				Description: "What the student must add; a default note is used when empty",
				MaxLength:   validation.Int(2000),
			},
			"feedback": {
				Type:        "string",
				Description: "Optional feedback text",
				MaxLength:   validation.Int(20000),
			},
		},
	}
}
