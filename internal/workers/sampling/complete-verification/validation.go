package completeverification

import (
	"portfolio-workers/internal/common/validation"
	"portfolio-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "samplingRecordId", "outcome"},
		Properties: map[string]validation.Property{
			"actorId":          validation.NonEmpty("Internal quality assurer"),
			"samplingRecordId": validation.NonEmpty("Pending sampling record"),
			"outcome": {
				Type:        "string",
				Description: "Verification outcome",
				Enum:        []string{string(models.VerificationVerified), string(models.VerificationConcernsRaised)},
			},
			"notes": {Type: "string", Description: "IQA notes", MaxLength: validation.Int(20000)},
			"feedbackQuality": {
				Type: "string",
				Enum: []string{
					string(models.FeedbackExcellent),
					string(models.FeedbackGood),
					string(models.FeedbackAdequate),
					string(models.FeedbackPoor),
				},
			},
			"gradingAccuracy": {
				Type: "string",
				Enum: []string{string(models.GradingAccurate), string(models.GradingLenient), string(models.GradingSevere)},
			},
			"requiredAction": {Type: "string", MaxLength: validation.Int(2000)},
		},
	}
}
