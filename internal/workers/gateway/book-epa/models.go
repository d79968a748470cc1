package bookepa

import (
	"time"

	"portfolio-workers/internal/models"
)

type Input struct {
	ActorID         string     `json:"actorId"`
	StudentID       string     `json:"studentId"`
	QualificationID string     `json:"qualificationId"`
	Date            *time.Time `json:"date"`
}

type Output struct {
	GatewayStatus *models.GatewayStatus `json:"gatewayStatus"`
	EPABookedDate *time.Time            `json:"epaBookedDate,omitempty"`
	EPAEligible   bool                  `json:"epaEligible"`
	Warnings      []string              `json:"warnings"`
}
