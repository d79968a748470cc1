package getgatewaystatus

import "portfolio-workers/internal/models"

// Input is gateway.StatusInput; the job variables decode straight into it.

type Output struct {
	GatewayStatus   *models.GatewayStatus `json:"gatewayStatus"`
	ReadinessStatus models.Readiness      `json:"readinessStatus"`
	OverallProgress int                   `json:"overallProgress"`
}
