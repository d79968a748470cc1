package updateojthours

import "portfolio-workers/internal/models"

type Input struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Hours           *int   `json:"hours"`
	HoursRequired   *int   `json:"hoursRequired,omitempty"`
}

type Output struct {
	GatewayStatus   *models.GatewayStatus `json:"gatewayStatus"`
	HoursCompleted  int                   `json:"hoursCompleted"`
	HoursRequired   int                   `json:"hoursRequired"`
	HoursVerified   bool                  `json:"ojtHoursVerified"`
	ReadinessStatus models.Readiness      `json:"readinessStatus"`
}
