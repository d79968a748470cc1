package verifyksbmapping

import (
	"portfolio-workers/internal/common/validation"
	"portfolio-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "itemId", "ksbId", "qualificationId", "coverage"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Assessor verifying the mapping"),
			"itemId":          validation.NonEmpty("Portfolio item"),
			"ksbId":           validation.NonEmpty("Mapped KSB"),
			"qualificationId": validation.NonEmpty("Qualification the assessor is assigned for"),
			"coverage": {
				Type: "string",
				Enum: []string{string(models.CoveragePartial), string(models.CoverageFull)},
			},
		},
	}
}
