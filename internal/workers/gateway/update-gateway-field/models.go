package updategatewayfield

import (
	"time"

	"portfolio-workers/internal/models"
)

type Input struct {
	ActorID         string     `json:"actorId"`
	StudentID       string     `json:"studentId"`
	QualificationID string     `json:"qualificationId"`
	Field           string     `json:"field"`
	Value           bool       `json:"value"`
	Date            *time.Time `json:"date,omitempty"`
}

type Output struct {
	GatewayStatus   *models.GatewayStatus `json:"gatewayStatus"`
	ReadinessStatus models.Readiness      `json:"readinessStatus"`
	OverallProgress int                   `json:"overallProgress"`
	GatewayPassed   bool                  `json:"gatewayPassed"`
}

func newOutput(s *models.GatewayStatus) *Output {
	return &Output{
		GatewayStatus:   s,
		ReadinessStatus: s.ReadinessStatus,
		OverallProgress: s.OverallProgress,
		GatewayPassed:   s.Checklist.GatewayPassed,
	}
}
