package submitfeedback

import (
	"portfolio-workers/internal/common/validation"
	"portfolio-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "submissionId", "grade"},
		Properties: map[string]validation.Property{
			"actorId":      validation.NonEmpty("Reviewing assessor"),
			"submissionId": validation.NonEmpty("Submission under review"),
			"grade": {
				Type:        "string",
				Description: "Grade awarded; refer and not_yet_competent send the work back",
				Enum: []string{
					string(models.GradePass),
					string(models.GradeMerit),
					string(models.GradeDistinction),
					string(models.GradeRefer),
					string(models.GradeNotYetCompetent),
				},
			},
			"feedback": {
				Type:        "string",
				Description: "Assessor feedback shown to the student",
				MaxLength:   validation.Int(20000),
			},
		},
	}
}
