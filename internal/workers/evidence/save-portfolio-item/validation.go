package saveportfolioitem

import (
	"portfolio-workers/internal/common/validation"
	"portfolio-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"actorId", "studentId", "category", "title"},
		Properties: map[string]validation.Property{
			"actorId":   validation.NonEmpty("Student saving the item"),
			"studentId": validation.NonEmpty("Item owner"),
			"itemId":    {Type: "string", Description: "Existing item to edit; omit to create"},
			"category":  validation.NonEmpty("Portfolio category"),
			"title": {
				Type:      "string",
				MinLength: validation.Int(1),
				MaxLength: validation.Int(300),
			},
			"description": {Type: "string", MaxLength: validation.Int(20000)},
			"status": {
				Type: "string",
				Enum: []string{string(models.PortfolioDraft), string(models.PortfolioCompleted), string(models.PortfolioReviewed)},
			},
			"ksbIds": {
				Type:        "array",
				Description: "KSBs the item evidences",
				Items:       &validation.Property{Type: "string"},
			},
		},
	}
}
