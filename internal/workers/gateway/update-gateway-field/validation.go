package updategatewayfield

import (
	"portfolio-workers/internal/common/validation"
	"portfolio-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	fields := make([]string, 0, len(models.GatewayCriteria))
	for _, c := range models.GatewayCriteria {
		fields = append(fields, string(c))
	}

	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "qualificationId", "field", "value"},
		Properties: map[string]validation.Property{
			"actorId":         validation.NonEmpty("Staff member updating the checklist"),
			"studentId":       validation.NonEmpty("Student"),
			"qualificationId": validation.NonEmpty("Qualification"),
			"field": {
				Type:        "string",
				Description: "Gateway criterion to set",
				Enum:        fields,
			},
			"value": {Type: "boolean", Description: "Whether the criterion is met"},
			"date": {
				Type:        "string",
				Description: "When the criterion was met; defaults to now",
				Format:      "date-time",
			},
		},
	}
}
